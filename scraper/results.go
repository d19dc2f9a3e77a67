package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// UnknownLength is reported when a description carries no "<n> aa" length.
const UnknownLength = "Unknown"

var aaLengthPattern = regexp.MustCompile(`([\d,]+)\s+aa`)

// ResultRow is one item of the loaded results page. Its Element goes stale
// as soon as the page reloads.
type ResultRow struct {
	Index   int // 1-based, page-local
	Element Element
}

// ResultPage reads the rows of the currently loaded results page.
type ResultPage struct {
	sess Session
}

func NewResultPage(sess Session) *ResultPage {
	return &ResultPage{sess: sess}
}

// ListItems returns the rows in document order.
func (p *ResultPage) ListItems(ctx context.Context) ([]ResultRow, error) {
	els, err := p.sess.FindAll(ctx, RowSelector)
	if err != nil {
		return nil, fmt.Errorf("list result rows: %w", err)
	}
	rows := make([]ResultRow, len(els))
	for i, el := range els {
		rows[i] = ResultRow{Index: i + 1, Element: el}
	}
	return rows, nil
}

func (p *ResultPage) ReadTitle(ctx context.Context, row ResultRow) (string, error) {
	return p.readText(ctx, row, TitleLinkSelector)
}

func (p *ResultPage) ReadDescription(ctx context.Context, row ResultRow) (string, error) {
	return p.readText(ctx, row, DescSelector)
}

// TitleHref returns the address the row's title links to.
func (p *ResultPage) TitleHref(ctx context.Context, row ResultRow) (string, error) {
	link, err := p.sess.Find(ctx, row.Element, TitleLinkSelector)
	if err != nil {
		return "", fmt.Errorf("%w: row %d title link: %v", ErrExtraction, row.Index, err)
	}
	href, err := p.sess.Attribute(ctx, link, "href")
	if err != nil {
		return "", fmt.Errorf("%w: row %d href: %v", ErrExtraction, row.Index, err)
	}
	if href == "" {
		return "", fmt.Errorf("%w: row %d has an empty title link", ErrExtraction, row.Index)
	}
	return href, nil
}

func (p *ResultPage) readText(ctx context.Context, row ResultRow, selector string) (string, error) {
	el, err := p.sess.Find(ctx, row.Element, selector)
	if err != nil {
		return "", fmt.Errorf("%w: row %d %s: %v", ErrExtraction, row.Index, selector, err)
	}
	text, err := p.sess.Text(ctx, el)
	if err != nil {
		return "", fmt.Errorf("%w: row %d %s: %v", ErrExtraction, row.Index, selector, err)
	}
	return strings.TrimSpace(text), nil
}

// ExtractAaLength returns the "1,260" of "... 1,260 aa ...", or UnknownLength.
func ExtractAaLength(description string) string {
	m := aaLengthPattern.FindStringSubmatch(description)
	if m == nil {
		return UnknownLength
	}
	return m[1]
}
