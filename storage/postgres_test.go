package storage

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"covid-protein-crawler/config"
	"covid-protein-crawler/models"
)

func setupPostgres(t testing.TB) (*PostgresStore, func()) {
	if testing.Short() {
		t.Skip("postgres mirror test needs docker")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "crawler",
				"POSTGRES_PASSWORD": "crawler",
				"POSTGRES_DB":       "protein_crawl",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.DBHost = host
	cfg.DBPort = port.Int()
	cfg.DBUser = "crawler"
	cfg.DBPassword = "crawler"
	cfg.DBName = "protein_crawl"
	cfg.DBSSLMode = "disable"

	store, err := NewPostgresStore(cfg)
	require.NoError(t, err)

	return store, func() {
		_ = store.Close()
		if err := pg.Terminate(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPostgresSavePage(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rec1 := record(1, 1, "MSDNGPQ")
	rec1.Accession, rec1.Header = "QHD43423.2", "QHD43423.2 nucleocapsid phosphoprotein"
	rec2 := record(1, 2, "NQRNAPR")
	page := models.PageResult{
		Page: 1,
		Rows: 4,
		Outcomes: []models.ItemOutcome{
			{Page: 1, Item: 1, State: models.Success, Attempts: 1, Record: &rec1},
			{Page: 1, Item: 2, State: models.Success, Attempts: 2, Record: &rec2},
			{Page: 1, Item: 3, State: models.Skipped},
			{
				Page: 1, Item: 4, Title: "broken", State: models.Abandoned, Attempts: 3,
				Kind: "extraction", Err: errors.New("sequence did not load"), At: time.Now(),
			},
		},
	}

	n, err := store.SavePage(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Saving the same page again inserts no duplicate records.
	n, err = store.SavePage(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var failures int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM crawl_failures WHERE page = 1 AND item = 4 AND kind = 'extraction'`,
	).Scan(&failures))
	assert.Equal(t, 2, failures)

	var accession string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT accession FROM sequence_records WHERE page = 1 AND item = 1`,
	).Scan(&accession))
	assert.Equal(t, "QHD43423.2", accession)

	n, err = store.SavePage(ctx, models.PageResult{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
