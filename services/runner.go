package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"covid-protein-crawler/config"
	"covid-protein-crawler/models"
	"covid-protein-crawler/scraper"
	"covid-protein-crawler/storage"
)

// Run starts Chrome, opens the optional database mirror and crawls the
// configured page range.
func Run(ctx context.Context, cfg config.Config) (models.RunReport, error) {
	var mirror storage.Mirror
	if cfg.DBEnabled {
		store, err := storage.NewPostgresStore(cfg)
		if err != nil {
			return models.RunReport{}, fmt.Errorf("connect to postgres: %w", err)
		}
		defer store.Close()
		mirror = store
		log.Printf("Postgres : %s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	}

	sess, err := scraper.NewChromeSession(ctx, cfg)
	if err != nil {
		return models.RunReport{}, err
	}
	defer sess.Close()

	return RunWith(ctx, cfg, sess, mirror)
}

// RunWith crawls cfg's page range over an already started session. The
// output file is read once to build the ledger, then appended to.
func RunWith(ctx context.Context, cfg config.Config, sess scraper.Session, mirror storage.Mirror) (models.RunReport, error) {
	for _, notice := range cfg.Validate() {
		log.Printf("⚠ %s", notice)
	}

	ledger, err := storage.LoadLedger(cfg.OutFile)
	if err != nil {
		return models.RunReport{}, err
	}
	log.Printf("%d items already in %s", ledger.Len(), cfg.OutFile)

	sink, err := storage.OpenSink(cfg.OutFile, ledger)
	if err != nil {
		return models.RunReport{}, err
	}
	defer sink.Close()

	nav := scraper.NewNavigator(sess, cfg)
	results := scraper.NewResultPage(sess)
	extractor := scraper.NewExtractor(sess, results, cfg)
	coord := NewCoordinator(sess, results, extractor, ledger, cfg)
	walker := NewWalker(nav, results, coord, sink, mirror)

	started := time.Now()
	log.Printf("▶ searching %s for %q", cfg.Database, cfg.Query)
	if err := nav.OpenSearch(ctx, cfg.Query); err != nil {
		report := models.RunReport{
			StartedAt:    started,
			FinishedAt:   time.Now(),
			StartPage:    cfg.StartPage,
			EndPage:      cfg.EndPage,
			EffectiveEnd: cfg.EndPage,
			Aborted:      true,
			Error:        err.Error(),
		}
		report.Query, report.OutFile = cfg.Query, cfg.OutFile
		return report, err
	}

	report, err := walker.Walk(ctx, cfg.StartPage, cfg.EndPage)
	report.Query, report.OutFile = cfg.Query, cfg.OutFile
	return report, err
}
