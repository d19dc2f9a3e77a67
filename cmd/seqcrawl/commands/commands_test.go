package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covid-protein-crawler/config"
)

func TestApplyCrawlFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(crawlCmd.Flags())
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.ParseFlags([]string{"--start", "4", "--end", "2", "--out", "spike.txt", "--db"}))

	cfg := config.Default()
	require.NoError(t, applyCrawlFlags(cmd, &cfg))
	assert.Equal(t, 4, cfg.StartPage)
	assert.Equal(t, 4, cfg.EndPage)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "spike.txt", cfg.OutFile)
	assert.True(t, cfg.DBEnabled)
	assert.Contains(t, out.String(), "End page set to 4")
}

func TestApplyCrawlFlagsPromptsWithoutRange(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("2\n3\n1\n"))

	cfg := config.Default()
	require.NoError(t, applyCrawlFlags(cmd, &cfg))
	assert.Equal(t, 2, cfg.StartPage)
	assert.Equal(t, 3, cfg.EndPage)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Contains(t, out.String(), "Enter start page number (default 1): ")
}

func TestComposeCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nucleocapsid.txt"),
		[]byte("1, 1, n, 3 aa\nMKV\n\n1, 2, n, 2 aa\nMK\n\n"), 0o644))
	csvPath := filepath.Join(t.TempDir(), "features.csv")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"compose", "--out", csvPath, dir})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], ",nucleocapsid"))
	assert.Contains(t, out.String(), "nucleocapsid.txt")
}
