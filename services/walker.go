package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"covid-protein-crawler/models"
	"covid-protein-crawler/scraper"
	"covid-protein-crawler/storage"
)

// Walker pages through the results from a start page to an end page,
// clamped to the number of pages the search actually has.
type Walker struct {
	nav     *scraper.Navigator
	results *scraper.ResultPage
	coord   *Coordinator
	sink    *storage.Sink
	mirror  storage.Mirror
}

// NewWalker wires the walker. mirror may be nil.
func NewWalker(
	nav *scraper.Navigator,
	results *scraper.ResultPage,
	coord *Coordinator,
	sink *storage.Sink,
	mirror storage.Mirror,
) *Walker {
	return &Walker{nav: nav, results: results, coord: coord, sink: sink, mirror: mirror}
}

// Walk expects the search to be open on page 1. Every item of every page in
// range goes through the coordinator and successes are appended to the
// sink. A navigation failure, a failure to list rows, a sink write failure
// or cancellation of ctx aborts the walk; the report then carries the pages
// finished so far and Walk returns the cause.
func (w *Walker) Walk(ctx context.Context, start, end int) (models.RunReport, error) {
	report := models.RunReport{StartPage: start, EndPage: end, EffectiveEnd: end, StartedAt: time.Now()}

	abort := func(err error) (models.RunReport, error) {
		report.Aborted = true
		report.Error = err.Error()
		report.FinishedAt = time.Now()
		log.Printf("✗ crawl aborted: %v", err)
		return report, err
	}

	if start > 1 {
		report.EffectiveEnd = w.clamp(ctx, report.EffectiveEnd)
		if start > report.EffectiveEnd {
			log.Printf("⚠ start page %d is past the last page (%d), nothing to do", start, report.EffectiveEnd)
			report.FinishedAt = time.Now()
			return report, nil
		}
		log.Printf("jumping to page %d", start)
		if err := w.nav.GotoPage(ctx, start); err != nil {
			return abort(err)
		}
	}

	for page := start; page <= report.EffectiveEnd; page++ {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		result, err := w.walkPage(ctx, page)
		report.Pages = append(report.Pages, result)
		w.mirrorPage(ctx, result)
		if err != nil {
			return abort(err)
		}

		if page < report.EffectiveEnd {
			report.EffectiveEnd = w.clamp(ctx, report.EffectiveEnd)
		}
		if page >= report.EffectiveEnd {
			log.Printf("[page %d] last page reached", page)
			break
		}

		log.Printf("[page %d] → moving to page %d", page, page+1)
		if err := w.nav.GotoPage(ctx, page+1); err != nil {
			return abort(err)
		}
	}

	report.FinishedAt = time.Now()
	return report, nil
}

func (w *Walker) walkPage(ctx context.Context, page int) (models.PageResult, error) {
	result := models.PageResult{Page: page}

	rows, err := w.results.ListItems(ctx)
	if err != nil {
		return result, fmt.Errorf("page %d: %w", page, err)
	}
	result.Rows = len(rows)
	log.Printf("[page %d] %d items", page, len(rows))

	for item := 1; item <= len(rows); item++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := w.coord.Process(ctx, page, item)
		if outcome.State == models.Success {
			if err := w.sink.Append(*outcome.Record); err != nil {
				if !errors.Is(err, storage.ErrDuplicate) {
					// The file is the source of truth; nothing unwritten counts as extracted.
					outcome.State = models.Abandoned
					outcome.Record = nil
					outcome.Err = err
					outcome.Kind = string(scraper.KindIO)
					outcome.At = time.Now()
					result.Outcomes = append(result.Outcomes, outcome)
					return result, err
				}
				log.Printf("[page %d item %d] ⚠ %v", page, item, err)
				outcome.State = models.Skipped
				outcome.Record = nil
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)

		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	log.Printf("[page %d] done", page)
	return result, nil
}

// clamp lowers end to the page count the indicator reports. An unreadable
// indicator counts as a single page.
func (w *Walker) clamp(ctx context.Context, end int) int {
	total, err := w.nav.ReadMaxPage(ctx)
	if err != nil {
		log.Printf("⚠ %v, assuming a single page", err)
		total = 1
	}
	if total < end {
		log.Printf("⚠ only %d pages available, stopping there instead of %d", total, end)
		return total
	}
	return end
}

func (w *Walker) mirrorPage(ctx context.Context, result models.PageResult) {
	if w.mirror == nil {
		return
	}
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	n, err := w.mirror.SavePage(dbCtx, result)
	if err != nil {
		log.Printf("[page %d] ⚠ mirror: %v", result.Page, err)
		return
	}
	if n > 0 {
		log.Printf("[page %d] mirrored %d records", result.Page, n)
	}
}
