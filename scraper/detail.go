package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"covid-protein-crawler/config"
	"covid-protein-crawler/models"
)

// ResolvedItem is the accession behind a result row and its detail address.
type ResolvedItem struct {
	Accession string
	DetailURL string
}

// Extractor turns one result row into a SequenceRecord by opening the
// row's plain-sequence view in a new browsing context.
type Extractor struct {
	sess      Session
	results   *ResultPage
	cfg       config.Config
	accession *regexp.Regexp
}

func NewExtractor(sess Session, results *ResultPage, cfg config.Config) *Extractor {
	return &Extractor{
		sess:      sess,
		results:   results,
		cfg:       cfg,
		accession: regexp.MustCompile(`/` + regexp.QuoteMeta(cfg.Database) + `/([^?#/]+)`),
	}
}

// ResolveAccession pulls the accession out of a title link such as
// https://www.ncbi.nlm.nih.gov/protein/QHD43423.2?report=genpept.
func (e *Extractor) ResolveAccession(href string) (string, error) {
	m := e.accession.FindStringSubmatch(href)
	if m == nil {
		return "", fmt.Errorf("%w: no accession in %q", ErrExtraction, href)
	}
	return m[1], nil
}

// BuildDetailURL returns the FASTA view address for accession.
func (e *Extractor) BuildDetailURL(accession string) string {
	return fmt.Sprintf("%s/%s/%s?report=fasta",
		strings.TrimRight(e.cfg.BaseURL, "/"), e.cfg.Database, accession)
}

// Resolve reads the row's title link and derives its ResolvedItem.
func (e *Extractor) Resolve(ctx context.Context, row ResultRow) (ResolvedItem, error) {
	href, err := e.results.TitleHref(ctx, row)
	if err != nil {
		return ResolvedItem{}, err
	}
	acc, err := e.ResolveAccession(href)
	if err != nil {
		return ResolvedItem{}, err
	}
	return ResolvedItem{Accession: acc, DetailURL: e.BuildDetailURL(acc)}, nil
}

// Extract resolves row, opens its detail view in a new context, focuses
// that context and parses the sequence block. The detail context is left
// open; closing it and restoring focus is the caller's job.
func (e *Extractor) Extract(ctx context.Context, row ResultRow) (ResolvedItem, models.SequenceRecord, error) {
	item, err := e.Resolve(ctx, row)
	if err != nil {
		return ResolvedItem{}, models.SequenceRecord{}, err
	}

	id, err := e.sess.OpenContext(ctx, item.DetailURL)
	if err != nil {
		return item, models.SequenceRecord{}, fmt.Errorf("%w: open %s: %v", ErrExtraction, item.Accession, err)
	}
	if err := e.sess.SwitchTo(ctx, id); err != nil {
		return item, models.SequenceRecord{}, fmt.Errorf("%w: focus %s: %v", ErrExtraction, item.Accession, err)
	}
	if err := e.sess.WaitPresent(ctx, SequenceSelector, e.cfg.DetailTimeout); err != nil {
		return item, models.SequenceRecord{}, fmt.Errorf("%w: %s sequence did not load: %v", ErrExtraction, item.Accession, err)
	}
	pre, err := e.sess.Find(ctx, Document, SequenceSelector)
	if err != nil {
		return item, models.SequenceRecord{}, fmt.Errorf("%w: %s sequence block: %v", ErrExtraction, item.Accession, err)
	}
	text, err := e.sess.Text(ctx, pre)
	if err != nil {
		return item, models.SequenceRecord{}, fmt.Errorf("%w: %s sequence text: %v", ErrExtraction, item.Accession, err)
	}

	rec, err := ParseFasta(text)
	if err != nil {
		return item, models.SequenceRecord{}, fmt.Errorf("%s: %w", item.Accession, err)
	}
	return item, rec, nil
}

// ParseFasta splits a FASTA block into its header, without the leading
// '>', and the sequence with every whitespace character removed.
func ParseFasta(text string) (models.SequenceRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.SequenceRecord{}, fmt.Errorf("%w: empty sequence block", ErrExtraction)
	}

	header, body, _ := strings.Cut(text, "\n")
	header = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), ">"))

	sequence := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, body)
	if sequence == "" {
		return models.SequenceRecord{}, fmt.Errorf("%w: no sequence after header %q", ErrExtraction, header)
	}
	return models.SequenceRecord{Header: header, Sequence: sequence}, nil
}
