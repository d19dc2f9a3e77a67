package scraper

import (
	"context"
	"errors"
	"os"
)

var (
	// ErrNavigationTimeout aborts the run: the search or a results page did
	// not become observable in time.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrParse marks an unreadable page indicator. Callers fall back to a
	// single page.
	ErrParse = errors.New("parse error")
	// ErrExtraction is recoverable at item granularity.
	ErrExtraction = errors.New("extraction error")
	// ErrRetryExhausted is reported for items abandoned after every attempt failed.
	ErrRetryExhausted = errors.New("retry exhausted")
	// ErrContextCleanup is logged and otherwise ignored.
	ErrContextCleanup = errors.New("context cleanup error")
)

// Kind is a coarse error classification used in log lines and failure records.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindNavigationTimeout Kind = "navigation_timeout"
	KindParse             Kind = "parse"
	KindExtraction        Kind = "extraction"
	KindRetryExhausted    Kind = "retry_exhausted"
	KindContextCleanup    Kind = "context_cleanup"
	KindCancel            Kind = "cancel"
	KindIO                Kind = "io"
)

// Classify maps err onto a Kind using sentinels and standard error types only.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrRetryExhausted):
		return KindRetryExhausted
	case errors.Is(err, ErrNavigationTimeout):
		return KindNavigationTimeout
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrContextCleanup):
		return KindContextCleanup
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancel
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return KindIO
	}
	return KindUnknown
}
