package transformer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// copyJobs lists the input directory and returns one job per file that is not
// in the settings table. Entries are visited in name order.
func (t *Transformer) copyJobs() ([]job, error) {
	entries, err := os.ReadDir(t.opts.InputDir)
	if err != nil {
		return nil, fileError(FilesystemReadError, t.opts.InputDir, err)
	}

	var jobs []job
	for _, e := range entries {
		name := e.Name()
		if _, ok := t.known[name]; ok {
			continue
		}
		jobs = append(jobs, func() FileResult { return t.copyFile(name) })
	}
	return jobs, nil
}

// copyFile copies one file byte for byte, keeping its permission bits and
// modification time. Directories and special files are skipped.
func (t *Transformer) copyFile(name string) FileResult {
	res := FileResult{Name: name, Action: ActionCopied, DryRun: t.opts.DryRun}
	src := filepath.Join(t.opts.InputDir, name)

	info, err := os.Stat(src)
	if err != nil {
		res.Err = fileError(FilesystemReadError, name, err)
		return res
	}
	if !info.Mode().IsRegular() {
		t.logger.Warn("Skipping non-regular file", zap.String("file", name), zap.Stringer("mode", info.Mode()))
		res.Action = ActionSkipped
		return res
	}
	if t.opts.DryRun {
		return res
	}

	if err := copyContents(src, filepath.Join(t.opts.OutputDir, name), info); err != nil {
		res.Err = err
	}
	return res
}

func copyContents(src, dst string, info os.FileInfo) error {
	name := filepath.Base(src)

	in, err := os.Open(src)
	if err != nil {
		return fileError(FilesystemReadError, name, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fileError(FilesystemWriteError, name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fileError(FilesystemWriteError, name, err)
	}
	// OpenFile only applies the mode to new files, and only through the umask.
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		out.Close()
		return fileError(FilesystemWriteError, name, err)
	}
	if err := out.Close(); err != nil {
		return fileError(FilesystemWriteError, name, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fileError(FilesystemWriteError, name, fmt.Errorf("preserve modification time: %w", err))
	}
	return nil
}
