// Package features turns crawl output into per-letter composition tables.
package features

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var metadataLine = regexp.MustCompile(`^(\d+), (\d+), (.*), (\S+) aa$`)

// Block is one record read back from an output file. Page, Item and Title
// are only set for metadata-line blocks; Header only for FASTA blocks.
type Block struct {
	Page     int
	Item     int
	Title    string
	AaLength string
	Header   string
	Sequence string
}

// ParseBlocks reads crawl output blocks ("<page>, <item>, <title>, <n> aa"
// followed by sequence lines) as well as plain FASTA records. A record ends
// at a blank line, at the next record start or at EOF. Records without any
// sequence are dropped and counted in skipped.
func ParseBlocks(r io.Reader) (blocks []Block, skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var cur *Block
	var seq strings.Builder
	flush := func() {
		if cur == nil {
			return
		}
		cur.Sequence = seq.String()
		if cur.Sequence == "" {
			skipped++
		} else {
			blocks = append(blocks, *cur)
		}
		cur = nil
		seq.Reset()
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, ">"):
			flush()
			cur = &Block{Header: strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))}
		case metadataLine.MatchString(trimmed):
			flush()
			m := metadataLine.FindStringSubmatch(trimmed)
			page, _ := strconv.Atoi(m[1])
			item, _ := strconv.Atoi(m[2])
			cur = &Block{Page: page, Item: item, Title: m[3], AaLength: m[4]}
		case trimmed == "":
			flush()
		case cur != nil:
			seq.WriteString(strings.Join(strings.Fields(trimmed), ""))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read blocks: %w", err)
	}
	flush()
	return blocks, skipped, nil
}

// Composition counts the letters A to Z in seq, ignoring case. Anything
// else is ignored.
func Composition(seq string) [26]int {
	var counts [26]int
	for _, r := range strings.ToUpper(seq) {
		if r >= 'A' && r <= 'Z' {
			counts[r-'A']++
		}
	}
	return counts
}

// Row is one line of the composition table.
type Row struct {
	Counts [26]int
	Label  string
}

// Header returns the CSV header: the letters A to Z, then Label.
func Header() []string {
	h := make([]string, 0, 27)
	for c := 'A'; c <= 'Z'; c++ {
		h = append(h, string(c))
	}
	return append(h, "Label")
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, row := range rows {
		rec := make([]string, 0, 27)
		for _, n := range row.Counts {
			rec = append(rec, strconv.Itoa(n))
		}
		if err := cw.Write(append(rec, row.Label)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Label is the file name of path without directory or extension.
func Label(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile parses the blocks of the file at path into rows labelled with
// the file's name.
func LoadFile(path string) ([]Row, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	blocks, skipped, err := ParseBlocks(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	label := Label(path)
	rows := make([]Row, len(blocks))
	for i, b := range blocks {
		rows[i] = Row{Counts: Composition(b.Sequence), Label: label}
	}
	return rows, skipped, nil
}

// Inputs expands every directory in paths to the *.txt files it contains,
// sorted by name. Plain files are kept as given.
func Inputs(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.txt"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}
