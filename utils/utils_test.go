package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covid-protein-crawler/config"
	"covid-protein-crawler/models"
)

func sampleReport() models.RunReport {
	short := &models.OutputRecord{Page: 1, Item: 1, Title: "a", AaLength: "4", Sequence: "MSDN"}
	long := &models.OutputRecord{Page: 2, Item: 1, Title: "b", AaLength: "10", Sequence: "MSDNGPQNQR"}
	mid := &models.OutputRecord{Page: 2, Item: 3, Title: "c", AaLength: "7", Sequence: "MSDNGPQ"}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.RunReport{
		Query:     "nucleocapsid",
		OutFile:   "coronavirus_data.txt",
		StartPage: 1, EndPage: 2, EffectiveEnd: 2,
		Pages: []models.PageResult{
			{Page: 1, Rows: 2, Outcomes: []models.ItemOutcome{
				{Page: 1, Item: 1, State: models.Success, Attempts: 1, Record: short},
				{Page: 1, Item: 2, State: models.Skipped},
			}},
			{Page: 2, Rows: 4, Outcomes: []models.ItemOutcome{
				{Page: 2, Item: 1, State: models.Success, Attempts: 2, Record: long},
				{Page: 2, Item: 2, Title: "x", State: models.Abandoned, Attempts: 3, Kind: "extraction", Err: errors.New("no pre"), At: at},
				{Page: 2, Item: 3, State: models.Success, Attempts: 1, Record: mid},
				{Page: 2, Item: 4, State: models.Abandoned, Attempts: 1, At: at},
			}},
		},
	}
}

func TestBuildSummaryStats(t *testing.T) {
	stats := BuildSummaryStats(sampleReport().Pages)

	assert.Equal(t, 2, stats.PagesWalked)
	assert.Equal(t, 6, stats.Items)
	assert.Equal(t, 3, stats.Extracted)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.Abandoned)
	assert.Equal(t, 21, stats.TotalResidues)
	assert.InDelta(t, 7.0, stats.AverageLength, 1e-9)
	assert.Equal(t, "MSDNGPQNQR", stats.LongestRecord.Sequence)
	assert.Equal(t, "MSDN", stats.ShortestRecord.Sequence)

	want := []PageCount{
		{Page: 1, Rows: 2, Extracted: 1, Skipped: 1},
		{Page: 2, Rows: 4, Extracted: 2, Abandoned: 2},
	}
	if diff := cmp.Diff(want, stats.PerPage); diff != "" {
		t.Errorf("per page mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []KindCount{{Kind: "extraction", Count: 1}, {Kind: "unknown", Count: 1}}, stats.FailureKinds)
}

func TestBuildSummaryStatsEmpty(t *testing.T) {
	stats := BuildSummaryStats(nil)
	assert.Zero(t, stats.Items)
	assert.Zero(t, stats.AverageLength)
	assert.Empty(t, stats.FailureKinds)
}

func TestBuildSummaryStatsIgnoresSuccessWithoutRecord(t *testing.T) {
	stats := BuildSummaryStats([]models.PageResult{{Page: 1, Rows: 2, Outcomes: []models.ItemOutcome{
		{Page: 1, Item: 1, State: models.Success, Record: &models.OutputRecord{Page: 1, Item: 1, Sequence: "MKV"}},
		{Page: 1, Item: 2, State: models.Success},
	}}})
	assert.Equal(t, 1, stats.Extracted)
	assert.Equal(t, []PageCount{{Page: 1, Rows: 2, Extracted: 1}}, stats.PerPage)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	n, err := WriteJSON(path, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Query        string                `json:"query"`
		EffectiveEnd int                   `json:"effectiveEnd"`
		Aborted      bool                  `json:"aborted"`
		Records      []models.OutputRecord `json:"records"`
		Failures     []models.Failure      `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "nucleocapsid", doc.Query)
	assert.Equal(t, 2, doc.EffectiveEnd)
	assert.False(t, doc.Aborted)
	require.Len(t, doc.Records, 3)
	assert.Equal(t, "MSDNGPQ", doc.Records[2].Sequence)
	require.Len(t, doc.Failures, 2)
	assert.Equal(t, "no pre", doc.Failures[0].Message)
	assert.Equal(t, 3, doc.Failures[0].Attempts)
}

func TestWriteJSONEmptyRunHasEmptyLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	_, err := WriteJSON(path, models.RunReport{Aborted: true, Error: "navigation timeout"})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"records": []`)
	assert.Contains(t, string(raw), `"failures": []`)
	assert.Contains(t, string(raw), `"error": "navigation timeout"`)
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, BuildSummaryStats(sampleReport().Pages))
	out := buf.String()
	for _, want := range []string{"PAGE", "EXTRACTED", "TOTAL", "Residues extracted", "21", "page 2 item 1, 10 residues", "Abandoned (extraction)"} {
		assert.Contains(t, out, want)
	}
}

func TestAllocatorOptions(t *testing.T) {
	cfg := config.Default()
	cfg.UserAgent, cfg.ChromePath, cfg.BlockImages = "", "", false
	base := len(AllocatorOptions(cfg))

	cfg.UserAgent = "seqcrawl-test"
	cfg.ChromePath = "/usr/bin/chromium"
	cfg.BlockImages = true
	assert.Equal(t, base+3, len(AllocatorOptions(cfg)))
}
