package utils

import (
	"encoding/json"
	"os"

	"covid-protein-crawler/models"
)

type runDocument struct {
	models.RunReport
	Stats    SummaryStats          `json:"stats"`
	Records  []models.OutputRecord `json:"records"`
	Failures []models.Failure      `json:"failures"`
}

// WriteJSON writes the run report, its statistics, every record extracted
// during the run and every abandoned item to filename. It returns the
// number of records written.
func WriteJSON(filename string, report models.RunReport) (int, error) {
	doc := runDocument{
		RunReport: report,
		Stats:     BuildSummaryStats(report.Pages),
		Records:   make([]models.OutputRecord, 0),
		Failures:  report.Failures(),
	}
	if doc.Failures == nil {
		doc.Failures = make([]models.Failure, 0)
	}
	for _, p := range report.Pages {
		for _, o := range p.Outcomes {
			if o.State == models.Success && o.Record != nil {
				doc.Records = append(doc.Records, *o.Record)
			}
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return 0, err
	}

	return len(doc.Records), nil
}
