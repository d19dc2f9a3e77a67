package models

import (
	"fmt"
	"time"
)

// SequenceRecord is the parsed content of one detail view.
type SequenceRecord struct {
	Header   string
	Sequence string
}

// OutputRecord is one extracted item. Only the metadata line and the
// sequence are written to the output file; Accession and Header travel to
// the database mirror.
type OutputRecord struct {
	Page      int    `json:"page"`
	Item      int    `json:"item"`
	Title     string `json:"title"`
	AaLength  string `json:"aaLength"`
	Accession string `json:"accession,omitempty"`
	Header    string `json:"header,omitempty"`
	Sequence  string `json:"sequence"`
}

// MetadataLine renders "<page>, <item>, <title>, <aaLength> aa".
func (r OutputRecord) MetadataLine() string {
	return fmt.Sprintf("%d, %d, %s, %s aa", r.Page, r.Item, r.Title, r.AaLength)
}

// Block renders the record as it appears in the output file: metadata
// line, sequence line, blank separator.
func (r OutputRecord) Block() string {
	return r.MetadataLine() + "\n" + r.Sequence + "\n\n"
}

// Failure describes an item that was abandoned after exhausting its retries.
type Failure struct {
	Page     int       `json:"page"`
	Item     int       `json:"item"`
	Title    string    `json:"title,omitempty"`
	Attempts int       `json:"attempts"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}
