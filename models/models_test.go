package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutputRecordBlock(t *testing.T) {
	rec := OutputRecord{
		Page:      3,
		Item:      14,
		Title:     "nucleocapsid phosphoprotein [Severe acute respiratory syndrome coronavirus 2]",
		AaLength:  "1,260",
		Accession: "QHD43423.2",
		Header:    "QHD43423.2 nucleocapsid phosphoprotein",
		Sequence:  "MSDNGPQ",
	}
	assert.Equal(t, "3, 14, nucleocapsid phosphoprotein [Severe acute respiratory syndrome coronavirus 2], 1,260 aa", rec.MetadataLine())
	assert.Equal(t, rec.MetadataLine()+"\nMSDNGPQ\n\n", rec.Block())

	rec.AaLength = "Unknown"
	assert.Equal(t, "3, 14, nucleocapsid phosphoprotein [Severe acute respiratory syndrome coronavirus 2], Unknown aa", rec.MetadataLine())
}

func TestItemState(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "abandoned", Abandoned.String())
	assert.Equal(t, "unknown", ItemState(42).String())

	for _, s := range []ItemState{Skipped, Success, Abandoned} {
		assert.True(t, s.Terminal(), s.String())
	}
	for _, s := range []ItemState{Pending, Extracting} {
		assert.False(t, s.Terminal(), s.String())
	}
}

func TestFailures(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	report := RunReport{Pages: []PageResult{
		{Page: 1, Outcomes: []ItemOutcome{
			{Page: 1, Item: 1, State: Success},
			{Page: 1, Item: 2, Title: "t", State: Abandoned, Attempts: 3, Kind: "extraction", Err: errors.New("boom"), At: at},
		}},
		{Page: 2, Outcomes: []ItemOutcome{
			{Page: 2, Item: 1, State: Abandoned, Attempts: 1, Kind: "cancel", At: at},
		}},
	}}

	assert.Equal(t, []Failure{
		{Page: 1, Item: 2, Title: "t", Attempts: 3, Kind: "extraction", Message: "boom", At: at},
		{Page: 2, Item: 1, Attempts: 1, Kind: "cancel", At: at},
	}, report.Failures())
}
