// Package scrapertest provides a scripted in-memory Session for tests.
package scrapertest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"covid-protein-crawler/scraper"
)

// Row is one scripted search result.
type Row struct {
	Title       string
	Description string
	Href        string
}

type tab struct {
	url    string
	gen    int
	broken bool
}

// Fake is a Session over a fixed set of result pages and detail views.
// Element handles go stale whenever the context they came from reloads,
// the same way DOM handles do in a real browser.
type Fake struct {
	Pages [][]Row
	// Details maps a detail address to the text of its sequence block.
	Details map[string]string

	// Indicator overrides the "Page x of N" text; NoIndicator removes the
	// element altogether.
	Indicator   string
	NoIndicator bool
	// NoResults keeps the result count marker from ever appearing.
	NoResults   bool
	NoPageInput bool
	// ListErr maps a results page to the error listing its rows returns.
	ListErr map[int]error
	// FailDetail maps a detail address to the number of opens whose
	// sequence block never appears; a negative count fails forever.
	FailDetail map[string]int
	// CloseErr is returned by CloseCurrent after the context is closed.
	CloseErr error
	// OnOpen runs on every OpenContext before the context is created.
	OnOpen func(url string)

	// Opens counts OpenContext calls per address.
	Opens    map[string]int
	Searches int
	Closed   bool

	page     int
	tabs     map[scraper.ContextID]*tab
	order    []scraper.ContextID
	original scraper.ContextID
	active   scraper.ContextID
	nextID   int
}

var _ scraper.Session = (*Fake)(nil)

// New returns a Fake serving pages, page 1 first.
func New(pages ...[]Row) *Fake {
	f := &Fake{
		Pages:      pages,
		Details:    map[string]string{},
		FailDetail: map[string]int{},
		Opens:      map[string]int{},
		tabs:       map[scraper.ContextID]*tab{},
		original:   "tab-0",
	}
	f.tabs[f.original] = &tab{}
	f.order = []scraper.ContextID{f.original}
	f.active = f.original
	return f
}

// Catalog builds a Fake with pages of perPage rows each, under the default
// NCBI protein addresses, with a FASTA detail view for every row.
func Catalog(pages, perPage int) *Fake {
	var all [][]Row
	details := map[string]string{}
	for p := 1; p <= pages; p++ {
		var rows []Row
		for i := 1; i <= perPage; i++ {
			acc := Accession(p, i)
			rows = append(rows, Row{
				Title:       Title(p, i),
				Description: fmt.Sprintf("%d aa protein\nAccession: %s GI: %d", Length(i), acc, 1000*p+i),
				Href:        "https://www.ncbi.nlm.nih.gov/protein/" + acc + "?report=genpept",
			})
			seq := Sequence(p, i)
			details[DetailURL(acc)] = fmt.Sprintf(">%s nucleocapsid phosphoprotein\n%s\n%s\n", acc, seq[:10], seq[10:])
		}
		all = append(all, rows)
	}
	f := New(all...)
	f.Details = details
	return f
}

// Accession is the accession Catalog assigns to row item of page.
func Accession(page, item int) string {
	return fmt.Sprintf("QX%03d%03d.1", page, item)
}

// Title is the title Catalog gives row item of page.
func Title(page, item int) string {
	return fmt.Sprintf("nucleocapsid phosphoprotein %d-%d [Severe acute respiratory syndrome coronavirus 2]", page, item)
}

// Length is the "aa" figure Catalog puts in the description of row item.
func Length(item int) int {
	return 419 + item
}

// Sequence is the sequence Catalog serves for row item of page.
func Sequence(page, item int) string {
	return "MSDNGPQNQR" + strings.Repeat("K", page) + strings.Repeat("G", item)
}

// DetailURL is the FASTA address of accession under the default config.
func DetailURL(accession string) string {
	return "https://www.ncbi.nlm.nih.gov/protein/" + accession + "?report=fasta"
}

// Page returns the results page currently loaded, 0 before any search.
func (f *Fake) Page() int {
	return f.page
}

// OpenContexts returns the contexts currently open, original first.
func (f *Fake) OpenContexts() []scraper.ContextID {
	return append([]scraper.ContextID(nil), f.order...)
}

// Original returns the context the session started with.
func (f *Fake) Original() scraper.ContextID {
	return f.original
}

func (f *Fake) timeout(what string) error {
	return fmt.Errorf("%s: %w", what, context.DeadlineExceeded)
}

func (f *Fake) focused() (*tab, error) {
	t, ok := f.tabs[f.active]
	if !ok {
		return nil, errors.New("no focused browsing context")
	}
	return t, nil
}

func (f *Fake) rows() []Row {
	if f.page < 1 || f.page > len(f.Pages) {
		return nil
	}
	return f.Pages[f.page-1]
}

func (f *Fake) ref(path string) scraper.Element {
	return scraper.NewElement(fmt.Sprintf("%s|%d|%s", f.active, f.tabs[f.active].gen, path))
}

// resolve checks that el belongs to the focused context's current document
// and returns its path.
func (f *Fake) resolve(el scraper.Element) (string, error) {
	parts := strings.SplitN(el.Ref, "|", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("unknown element %q", el.Ref)
	}
	t, err := f.focused()
	if err != nil {
		return "", err
	}
	if scraper.ContextID(parts[0]) != f.active || parts[1] != strconv.Itoa(t.gen) {
		return "", fmt.Errorf("stale element reference %q", el.Ref)
	}
	return parts[2], nil
}

func (f *Fake) rowAt(path string) (Row, int, error) {
	idx, err := strconv.Atoi(strings.SplitN(strings.TrimPrefix(path, "row:"), ":", 2)[0])
	rows := f.rows()
	if err != nil || idx < 1 || idx > len(rows) {
		return Row{}, 0, fmt.Errorf("no row for %q", path)
	}
	return rows[idx-1], idx, nil
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := f.focused()
	if err != nil {
		return err
	}
	t.url = url
	t.gen++
	if f.active == f.original {
		f.Searches++
		f.page = 1
	}
	return nil
}

func (f *Fake) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := f.focused()
	if err != nil {
		return err
	}
	switch {
	case f.active == f.original && selector == scraper.ResultCountSelector:
		if f.page == 0 || f.NoResults {
			return f.timeout("wait for " + selector)
		}
		return nil
	case f.active != f.original && selector == scraper.SequenceSelector:
		if _, ok := f.Details[t.url]; !ok || t.broken {
			return f.timeout("wait for " + selector)
		}
		return nil
	}
	if _, err := f.Find(ctx, scraper.Document, selector); err != nil {
		return f.timeout("wait for " + selector)
	}
	return nil
}

func (f *Fake) Find(ctx context.Context, within scraper.Element, selector string) (scraper.Element, error) {
	if err := ctx.Err(); err != nil {
		return scraper.Element{}, err
	}
	t, err := f.focused()
	if err != nil {
		return scraper.Element{}, err
	}
	notFound := f.timeout("find " + selector)

	if within.IsDocument() {
		if f.active != f.original {
			if selector == scraper.SequenceSelector {
				if _, ok := f.Details[t.url]; ok && !t.broken {
					return f.ref("pre"), nil
				}
			}
			return scraper.Element{}, notFound
		}
		if f.page == 0 {
			return scraper.Element{}, notFound
		}
		switch selector {
		case scraper.PageInputSelector:
			if !f.NoPageInput {
				return f.ref("input"), nil
			}
		case scraper.PageIndicatorSelector:
			if !f.NoIndicator {
				return f.ref("indicator"), nil
			}
		case scraper.ResultCountSelector:
			if !f.NoResults {
				return f.ref("count"), nil
			}
		case scraper.RowSelector:
			if len(f.rows()) > 0 {
				return f.ref("row:1"), nil
			}
		}
		return scraper.Element{}, notFound
	}

	path, err := f.resolve(within)
	if err != nil {
		return scraper.Element{}, err
	}
	if !strings.HasPrefix(path, "row:") || strings.Count(path, ":") != 1 {
		return scraper.Element{}, notFound
	}
	switch selector {
	case scraper.TitleLinkSelector:
		return f.ref(path + ":title"), nil
	case scraper.DescSelector:
		return f.ref(path + ":desc"), nil
	}
	return scraper.Element{}, notFound
}

func (f *Fake) FindAll(ctx context.Context, selector string) ([]scraper.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := f.focused(); err != nil {
		return nil, err
	}
	if f.active != f.original || selector != scraper.RowSelector {
		return nil, nil
	}
	if err := f.ListErr[f.page]; err != nil {
		return nil, err
	}
	rows := f.rows()
	out := make([]scraper.Element, len(rows))
	for i := range rows {
		out[i] = f.ref("row:" + strconv.Itoa(i+1))
	}
	return out, nil
}

func (f *Fake) Text(ctx context.Context, el scraper.Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := f.resolve(el)
	if err != nil {
		return "", err
	}
	switch path {
	case "indicator":
		if f.Indicator != "" {
			return f.Indicator, nil
		}
		return fmt.Sprintf("Page %d of %d", f.page, len(f.Pages)), nil
	case "count":
		n := 0
		for _, rows := range f.Pages {
			n += len(rows)
		}
		return fmt.Sprintf("Items: 1 to %d of %d", len(f.rows()), n), nil
	case "pre":
		return f.Details[f.tabs[f.active].url], nil
	}
	row, _, err := f.rowAt(path)
	if err != nil {
		return "", err
	}
	switch {
	case strings.HasSuffix(path, ":title"):
		return "  " + row.Title + "  ", nil
	case strings.HasSuffix(path, ":desc"):
		return row.Description + "\n", nil
	}
	return row.Title + "\n" + row.Description, nil
}

func (f *Fake) Attribute(ctx context.Context, el scraper.Element, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := f.resolve(el)
	if err != nil {
		return "", err
	}
	switch {
	case path == "input" && name == "value":
		return strconv.Itoa(f.page), nil
	case strings.HasSuffix(path, ":title") && name == "href":
		row, _, err := f.rowAt(path)
		if err != nil {
			return "", err
		}
		return row.Href, nil
	}
	return "", nil
}

// Type on the page input moves to the submitted page when it exists.
// Out-of-range pages leave the results untouched.
func (f *Fake) Type(ctx context.Context, el scraper.Element, value string, submit bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.resolve(el)
	if err != nil {
		return err
	}
	if path != "input" {
		return fmt.Errorf("element %q is not an input", el.Ref)
	}
	n, err := strconv.Atoi(value)
	if err != nil || !submit {
		return nil
	}
	if n >= 1 && n <= len(f.Pages) && n != f.page {
		f.page = n
		f.tabs[f.original].gen++
	}
	return nil
}

func (f *Fake) OpenContext(ctx context.Context, url string) (scraper.ContextID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.OnOpen != nil {
		f.OnOpen(url)
	}
	f.nextID++
	id := scraper.ContextID("tab-" + strconv.Itoa(f.nextID))
	t := &tab{url: url, gen: 1}
	if n, ok := f.FailDetail[url]; ok && n != 0 {
		t.broken = true
		if n > 0 {
			f.FailDetail[url] = n - 1
		}
	}
	f.tabs[id] = t
	f.order = append(f.order, id)
	f.Opens[url]++
	return id, nil
}

func (f *Fake) Contexts(ctx context.Context) ([]scraper.ContextID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.OpenContexts(), nil
}

func (f *Fake) Current() scraper.ContextID {
	return f.active
}

func (f *Fake) SwitchTo(ctx context.Context, id scraper.ContextID) error {
	if _, ok := f.tabs[id]; !ok {
		return fmt.Errorf("no such context %s", id)
	}
	f.active = id
	return nil
}

func (f *Fake) CloseCurrent(ctx context.Context) error {
	switch f.active {
	case "":
		return errors.New("close context: nothing is focused")
	case f.original:
		return errors.New("close context: refusing to close the original context")
	}
	delete(f.tabs, f.active)
	for i, id := range f.order {
		if id == f.active {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	f.active = ""
	return f.CloseErr
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
