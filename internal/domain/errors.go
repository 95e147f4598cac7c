package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNoChanges is returned when an edit produced an empty patch.
	ErrNoChanges = errors.New("no changes to update")
	// ErrUnauthenticated indicates no officer is logged in.
	ErrUnauthenticated = errors.New("not authenticated")
)

// ValidationError reports form input that failed local schema rules.
// It is recovered locally and never sent to the backend.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DecodeError is returned when a backend response does not match the expected shape.
type DecodeError struct {
	Resource string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s response: %s", e.Resource, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DownloadKind classifies a failed secondary artifact download.
type DownloadKind string

const (
	DownloadNotFound    DownloadKind = "not_found"
	DownloadRateLimited DownloadKind = "rate_limited"
	DownloadTimeout     DownloadKind = "timeout"
	DownloadSave        DownloadKind = "save"
	DownloadFailed      DownloadKind = "failed"
)

// DownloadError reports a failure fetching or saving a binary artifact after
// the primary operation already succeeded.
type DownloadError struct {
	Kind     DownloadKind
	Filename string
	Err      error
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return e.Warning()
	}
	return e.Warning() + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Warning is the user-facing text for the failure.
func (e *DownloadError) Warning() string {
	switch e.Kind {
	case DownloadNotFound:
		return "ID card file not found"
	case DownloadRateLimited:
		return "Too many ID card requests, try downloading again shortly"
	case DownloadTimeout:
		return "ID card download timed out"
	case DownloadSave:
		return "ID card could not be saved"
	default:
		return "ID card download failed"
	}
}
