package transformer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-file failure.
type ErrorKind int

const (
	MissingInputFile ErrorKind = iota
	MalformedJSON
	FilesystemReadError
	FilesystemWriteError
)

// Sentinels for errors.Is. A *FileError matches the sentinel of its kind.
var (
	ErrMissingInputFile = errors.New("missing input file")
	ErrMalformedJSON    = errors.New("malformed JSON")
	ErrFilesystemRead   = errors.New("filesystem read error")
	ErrFilesystemWrite  = errors.New("filesystem write error")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case MissingInputFile:
		return ErrMissingInputFile
	case MalformedJSON:
		return ErrMalformedJSON
	case FilesystemReadError:
		return ErrFilesystemRead
	case FilesystemWriteError:
		return ErrFilesystemWrite
	}
	return nil
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// FileError reports a failure processing one file.
type FileError struct {
	Kind ErrorKind
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedJSON) and friends match by kind.
func (e *FileError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func fileError(kind ErrorKind, file string, err error) *FileError {
	return &FileError{Kind: kind, File: file, Err: err}
}
