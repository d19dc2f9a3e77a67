package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

var ledgerLine = regexp.MustCompile(`^(\d+), (\d+),`)

// Key identifies an item by its position in the results.
type Key struct {
	Page int
	Item int
}

// Ledger is the set of positions already present in the output file.
type Ledger struct {
	done map[Key]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{done: map[Key]struct{}{}}
}

// LoadLedger scans the output file at path once. A position counts as
// processed when a line starting with "<page>, <item>," is followed by a
// non-empty sequence line; a metadata line left behind by a torn write does
// not. A missing file yields an empty ledger.
func LoadLedger(path string) (*Ledger, error) {
	l := NewLedger()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger source: %w", err)
	}
	defer f.Close()

	var pending *Key
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if key, ok := parseKey(line); ok {
			pending = &key
			continue
		}
		if pending != nil && len(bytes.TrimSpace(line)) > 0 {
			l.Mark(pending.Page, pending.Item)
		}
		pending = nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return l, nil
}

func parseKey(line []byte) (Key, bool) {
	m := ledgerLine.FindSubmatch(line)
	if m == nil {
		return Key{}, false
	}
	page, err1 := strconv.Atoi(string(m[1]))
	item, err2 := strconv.Atoi(string(m[2]))
	if err1 != nil || err2 != nil {
		return Key{}, false
	}
	return Key{Page: page, Item: item}, true
}

func (l *Ledger) IsProcessed(page, item int) bool {
	_, ok := l.done[Key{Page: page, Item: item}]
	return ok
}

func (l *Ledger) Mark(page, item int) {
	l.done[Key{Page: page, Item: item}] = struct{}{}
}

func (l *Ledger) Len() int {
	return len(l.done)
}
