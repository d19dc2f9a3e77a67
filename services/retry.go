package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"covid-protein-crawler/config"
	"covid-protein-crawler/models"
	"covid-protein-crawler/scraper"
	"covid-protein-crawler/storage"
)

// Step is the transition out of Extracting after attempt number attempt
// (1-based) finished with err.
func Step(attempt, maxAttempts int, err error) models.ItemState {
	switch {
	case err == nil:
		return models.Success
	case attempt >= maxAttempts:
		return models.Abandoned
	default:
		return models.Extracting
	}
}

// Coordinator runs one item through the retry state machine. Whatever the
// outcome, only the original browsing context is open and focused when
// Process returns.
type Coordinator struct {
	sess      scraper.Session
	results   *scraper.ResultPage
	extractor *scraper.Extractor
	ledger    *storage.Ledger
	cfg       config.Config
	original  scraper.ContextID
}

// NewCoordinator treats the context focused at construction time as the
// original one.
func NewCoordinator(
	sess scraper.Session,
	results *scraper.ResultPage,
	extractor *scraper.Extractor,
	ledger *storage.Ledger,
	cfg config.Config,
) *Coordinator {
	return &Coordinator{
		sess:      sess,
		results:   results,
		extractor: extractor,
		ledger:    ledger,
		cfg:       cfg,
		original:  sess.Current(),
	}
}

// Process extracts item of the loaded results page, retrying up to
// cfg.MaxRetries attempts. Items already in the ledger are Skipped without
// touching the browser.
func (c *Coordinator) Process(ctx context.Context, page, item int) models.ItemOutcome {
	out := models.ItemOutcome{Page: page, Item: item, State: models.Pending}
	if c.ledger.IsProcessed(page, item) {
		log.Printf("[page %d item %d] already processed, skipping", page, item)
		out.State = models.Skipped
		return out
	}

	maxAttempts := c.cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	out.State = models.Extracting
	for attempt := 1; out.State == models.Extracting; attempt++ {
		out.Attempts = attempt
		log.Printf("[page %d item %d] ▶ attempt %d/%d", page, item, attempt, maxAttempts)

		rec, title, err := c.attempt(ctx, page, item)
		if title != "" {
			out.Title = title
		}
		if cerr := c.cleanup(ctx); cerr != nil {
			log.Printf("[page %d item %d] ⚠ %v", page, item, cerr)
		}

		if err == nil {
			out.State = models.Success
			out.Record = &rec
			out.At = time.Now()
			log.Printf("[page %d item %d] ✓ %s (%s aa)", page, item, rec.Accession, rec.AaLength)
			return out
		}

		if ctx.Err() != nil {
			return c.abandon(out, ctx.Err())
		}

		out.State = Step(attempt, maxAttempts, err)
		if out.State == models.Abandoned {
			return c.abandon(out, err)
		}

		log.Printf("[page %d item %d] ⚠ attempt %d failed: %v", page, item, attempt, err)
		if err := scraper.Sleep(ctx, c.cfg.RetryBackoff); err != nil {
			return c.abandon(out, err)
		}
	}
	return out
}

func (c *Coordinator) abandon(out models.ItemOutcome, cause error) models.ItemOutcome {
	out.State = models.Abandoned
	out.Kind = string(scraper.Classify(cause))
	out.Err = fmt.Errorf("%w after %d attempt(s): %v", scraper.ErrRetryExhausted, out.Attempts, cause)
	out.At = time.Now()
	log.Printf("[page %d item %d] ✗ %v", out.Page, out.Item, out.Err)
	return out
}

// attempt re-enumerates the rows so no element handle outlives a reload,
// then reads the row and extracts its detail view.
func (c *Coordinator) attempt(ctx context.Context, page, item int) (models.OutputRecord, string, error) {
	rows, err := c.results.ListItems(ctx)
	if err != nil {
		return models.OutputRecord{}, "", fmt.Errorf("%w: %v", scraper.ErrExtraction, err)
	}
	if item < 1 || item > len(rows) {
		return models.OutputRecord{}, "", fmt.Errorf("%w: row %d not present, page has %d", scraper.ErrExtraction, item, len(rows))
	}
	row := rows[item-1]

	title, err := c.results.ReadTitle(ctx, row)
	if err != nil {
		return models.OutputRecord{}, "", err
	}
	desc, err := c.results.ReadDescription(ctx, row)
	if err != nil {
		return models.OutputRecord{}, title, err
	}

	resolved, seq, err := c.extractor.Extract(ctx, row)
	if err != nil {
		return models.OutputRecord{}, title, err
	}
	return models.OutputRecord{
		Page:      page,
		Item:      item,
		Title:     title,
		AaLength:  scraper.ExtractAaLength(desc),
		Accession: resolved.Accession,
		Header:    seq.Header,
		Sequence:  seq.Sequence,
	}, title, nil
}

// cleanup closes every context but the original and focuses the original.
// It runs detached from ctx so a cancelled run still leaves the session
// in a known state.
func (c *Coordinator) cleanup(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	ids, err := c.sess.Contexts(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, id := range ids {
		if id == c.original {
			continue
		}
		if err := c.sess.SwitchTo(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.sess.CloseCurrent(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.sess.SwitchTo(ctx, c.original); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", scraper.ErrContextCleanup, errors.Join(errs...))
	}
	return nil
}
