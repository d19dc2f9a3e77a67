package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"covid-protein-crawler/config"
)

var maxPagePattern = regexp.MustCompile(`of (\d+)`)

// Navigator issues page-level navigation against the search view and
// tracks which results page the session is on.
type Navigator struct {
	sess    Session
	cfg     config.Config
	current int
}

func NewNavigator(sess Session, cfg config.Config) *Navigator {
	return &Navigator{sess: sess, cfg: cfg}
}

// SearchURL returns the results address for query.
func (n *Navigator) SearchURL(query string) string {
	return fmt.Sprintf("%s/%s/?term=%s",
		strings.TrimRight(n.cfg.BaseURL, "/"), n.cfg.Database, url.QueryEscape(query))
}

// Current returns the results page the session is on, 0 before OpenSearch.
func (n *Navigator) Current() int {
	return n.current
}

// OpenSearch loads the results for query and waits for the result count
// marker.
func (n *Navigator) OpenSearch(ctx context.Context, query string) error {
	searchURL := n.SearchURL(query)
	if err := n.sess.Navigate(ctx, searchURL); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	if err := n.sess.WaitPresent(ctx, ResultCountSelector, n.cfg.SearchTimeout); err != nil {
		return fmt.Errorf("%w: search results did not load: %v", ErrNavigationTimeout, err)
	}
	n.current = 1
	return nil
}

// GotoPage submits page in the page number box and waits for the results
// to change. When no results were visible beforehand there is nothing to
// compare against and it waits SettleDelay instead.
func (n *Navigator) GotoPage(ctx context.Context, page int) error {
	before := n.firstRowHref(ctx)

	input, err := n.sess.Find(ctx, Document, PageInputSelector)
	if err != nil {
		return fmt.Errorf("%w: page input: %v", ErrNavigationTimeout, err)
	}
	if err := n.sess.Type(ctx, input, strconv.Itoa(page), true); err != nil {
		return fmt.Errorf("%w: submit page %d: %v", ErrNavigationTimeout, page, err)
	}

	if before == "" {
		if err := Sleep(ctx, n.cfg.SettleDelay); err != nil {
			return err
		}
	} else {
		err := waitUntil(ctx, n.cfg.SettleTimeout, n.cfg.PollInterval, func(ctx context.Context) (bool, error) {
			after := n.firstRowHref(ctx)
			return after != "" && after != before, nil
		})
		if err != nil {
			return fmt.Errorf("%w: page %d did not load: %v", ErrNavigationTimeout, page, err)
		}
	}

	n.current = page
	return nil
}

// ReadMaxPage parses the total page count out of the "Page x of N" indicator.
func (n *Navigator) ReadMaxPage(ctx context.Context) (int, error) {
	el, err := n.sess.Find(ctx, Document, PageIndicatorSelector)
	if err != nil {
		return 0, fmt.Errorf("%w: page indicator: %v", ErrParse, err)
	}
	text, err := n.sess.Text(ctx, el)
	if err != nil {
		return 0, fmt.Errorf("%w: page indicator: %v", ErrParse, err)
	}
	return ParseMaxPage(text)
}

// ParseMaxPage extracts N from text containing "of N".
func ParseMaxPage(text string) (int, error) {
	m := maxPagePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: no page count in %q", ErrParse, text)
	}
	total, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return total, nil
}

// firstRowHref identifies the loaded results page by the title link of its
// first row. It returns "" when there is no such row.
func (n *Navigator) firstRowHref(ctx context.Context) string {
	rows, err := n.sess.FindAll(ctx, RowSelector)
	if err != nil || len(rows) == 0 {
		return ""
	}
	link, err := n.sess.Find(ctx, rows[0], TitleLinkSelector)
	if err != nil {
		return ""
	}
	href, err := n.sess.Attribute(ctx, link, "href")
	if err != nil {
		return ""
	}
	return href
}
