package storage

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"

	"covid-protein-crawler/models"
)

// ErrDuplicate is returned by Append for a position the ledger already holds.
var ErrDuplicate = errors.New("record already written")

// Sink appends record blocks to the output file and keeps the ledger in step
// with what has been written.
type Sink struct {
	f      *os.File
	ledger *Ledger
}

// OpenSink opens path for appending, creating it if needed. A tail left
// without its blank separator is terminated first so the next block starts
// on a line of its own.
func OpenSink(path string, ledger *Ledger) (*Sink, error) {
	pad, err := missingSeparator(path)
	if err != nil {
		return nil, fmt.Errorf("inspect output: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	if pad != "" {
		log.Printf("⚠ %s ends mid-block, terminating it", path)
		if _, err := f.WriteString(pad); err != nil {
			f.Close()
			return nil, fmt.Errorf("terminate output: %w", err)
		}
	}
	return &Sink{f: f, ledger: ledger}, nil
}

// missingSeparator returns the newlines path needs to end in a blank line.
func missingSeparator(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	if size == 0 {
		return "", nil
	}
	tail := make([]byte, min(size, 2))
	if _, err := f.ReadAt(tail, size-int64(len(tail))); err != nil {
		return "", err
	}
	switch {
	case bytes.HasSuffix(tail, []byte("\n\n")):
		return "", nil
	case bytes.HasSuffix(tail, []byte("\n")):
		return "\n", nil
	}
	return "\n\n", nil
}

// Append writes rec as one block in a single write and syncs it before the
// position is marked processed. Only a block whose sequence line made it to
// disk counts as processed on the next LoadLedger.
func (s *Sink) Append(rec models.OutputRecord) error {
	if s.ledger.IsProcessed(rec.Page, rec.Item) {
		return fmt.Errorf("page %d item %d: %w", rec.Page, rec.Item, ErrDuplicate)
	}
	if _, err := s.f.WriteString(rec.Block()); err != nil {
		return fmt.Errorf("write page %d item %d: %w", rec.Page, rec.Item, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	s.ledger.Mark(rec.Page, rec.Item)
	return nil
}

func (s *Sink) Close() error {
	return s.f.Close()
}
