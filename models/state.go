package models

import "time"

// ItemState is a node of the per-item retry state machine.
type ItemState int

const (
	Pending ItemState = iota
	Skipped
	Extracting
	Success
	Abandoned
)

func (s ItemState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Skipped:
		return "skipped"
	case Extracting:
		return "extracting"
	case Success:
		return "success"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition leaves s.
func (s ItemState) Terminal() bool {
	return s == Skipped || s == Success || s == Abandoned
}

// ItemOutcome is what the retry coordinator reports for one item.
type ItemOutcome struct {
	Page     int
	Item     int
	Title    string
	State    ItemState
	Attempts int
	Record   *OutputRecord
	Err      error
	// Kind classifies Err; empty on success.
	Kind string
	At   time.Time
}

// Failure converts an abandoned outcome into its persisted form.
func (o ItemOutcome) Failure() Failure {
	f := Failure{
		Page:     o.Page,
		Item:     o.Item,
		Title:    o.Title,
		Attempts: o.Attempts,
		Kind:     o.Kind,
		At:       o.At,
	}
	if o.Err != nil {
		f.Message = o.Err.Error()
	}
	return f
}

// PageResult collects the outcomes of one results page, in row order.
type PageResult struct {
	Page     int
	Rows     int
	Outcomes []ItemOutcome
}
