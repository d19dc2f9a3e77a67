package utils

import (
	"sort"

	"covid-protein-crawler/models"
)

type PageCount struct {
	Page      int
	Rows      int
	Extracted int
	Skipped   int
	Abandoned int
}

type KindCount struct {
	Kind  string
	Count int
}

type SummaryStats struct {
	PagesWalked    int
	Items          int
	Extracted      int
	Skipped        int
	Abandoned      int
	TotalResidues  int
	AverageLength  float64
	LongestRecord  models.OutputRecord
	ShortestRecord models.OutputRecord
	PerPage        []PageCount
	FailureKinds   []KindCount
}

// BuildSummaryStats aggregates the outcomes of a run. Lengths are counted
// from the extracted sequences, not from the reported "aa" figures.
func BuildSummaryStats(pages []models.PageResult) SummaryStats {
	var stats SummaryStats
	kinds := make(map[string]int)

	for _, page := range pages {
		pc := PageCount{Page: page.Page, Rows: page.Rows}
		for _, o := range page.Outcomes {
			stats.Items++
			switch o.State {
			case models.Success:
				if o.Record == nil {
					continue
				}
				pc.Extracted++
				n := len(o.Record.Sequence)
				stats.TotalResidues += n
				if stats.Extracted == 0 || n > len(stats.LongestRecord.Sequence) {
					stats.LongestRecord = *o.Record
				}
				if stats.Extracted == 0 || n < len(stats.ShortestRecord.Sequence) {
					stats.ShortestRecord = *o.Record
				}
				stats.Extracted++
			case models.Skipped:
				pc.Skipped++
				stats.Skipped++
			case models.Abandoned:
				pc.Abandoned++
				stats.Abandoned++
				kind := o.Kind
				if kind == "" {
					kind = "unknown"
				}
				kinds[kind]++
			}
		}
		stats.PerPage = append(stats.PerPage, pc)
	}
	stats.PagesWalked = len(stats.PerPage)

	if stats.Extracted > 0 {
		stats.AverageLength = float64(stats.TotalResidues) / float64(stats.Extracted)
	}

	perKind := make([]KindCount, 0, len(kinds))
	for kind, count := range kinds {
		perKind = append(perKind, KindCount{Kind: kind, Count: count})
	}
	sort.Slice(perKind, func(i, j int) bool {
		if perKind[i].Count == perKind[j].Count {
			return perKind[i].Kind < perKind[j].Kind
		}
		return perKind[i].Count > perKind[j].Count
	})
	stats.FailureKinds = perKind

	return stats
}
