package transformer

import (
	"errors"
	"time"

	"profilescale/internal/profile"
)

// Action is what happened to one file.
type Action string

const (
	ActionTransformed Action = "transformed"
	ActionCopied      Action = "copied"
	ActionSkipped     Action = "skipped"
)

// FileResult is the outcome for one file of the input directory.
type FileResult struct {
	Name   string
	Action Action
	DryRun bool
	Err    error
}

// Failed reports whether processing this file failed.
func (r FileResult) Failed() bool { return r.Err != nil }

// Report summarizes one run.
type Report struct {
	RunID     string
	Factor    profile.Factor
	InputDir  string
	OutputDir string
	DryRun    bool
	Started   time.Time
	Finished  time.Time
	Files     []FileResult
}

// Count returns how many files ended with action a and no error.
func (r *Report) Count(a Action) int {
	n := 0
	for _, f := range r.Files {
		if f.Action == a && !f.Failed() {
			n++
		}
	}
	return n
}

// Failures returns the results that carry an error.
func (r *Report) Failures() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Failed() {
			failed = append(failed, f)
		}
	}
	return failed
}

// Err joins the errors of all failed files, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Failures() {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}
