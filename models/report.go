package models

import "time"

// RunReport summarises one crawl run.
type RunReport struct {
	Query        string       `json:"query"`
	OutFile      string       `json:"outFile"`
	StartPage    int          `json:"startPage"`
	EndPage      int          `json:"endPage"`
	EffectiveEnd int          `json:"effectiveEnd"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt"`
	Aborted      bool         `json:"aborted"`
	Error        string       `json:"error,omitempty"`
	Pages        []PageResult `json:"-"`
}

// Failures returns every abandoned item of the run in crawl order.
func (r RunReport) Failures() []Failure {
	var out []Failure
	for _, p := range r.Pages {
		for _, o := range p.Outcomes {
			if o.State == Abandoned {
				out = append(out, o.Failure())
			}
		}
	}
	return out
}
