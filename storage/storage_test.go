package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covid-protein-crawler/models"
)

func record(page, item int, seq string) models.OutputRecord {
	return models.OutputRecord{
		Page:     page,
		Item:     item,
		Title:    "nucleocapsid phosphoprotein [Severe acute respiratory syndrome coronavirus 2]",
		AaLength: "419",
		Sequence: seq,
	}
}

func TestLoadLedgerMissingFile(t *testing.T) {
	l, err := LoadLedger(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.IsProcessed(1, 1))
}

func TestLoadLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	content := "" +
		"1, 1, first title, 419 aa\nMSDNGPQ\n\n" +
		"1, 12, title with, commas, 1,260 aa\nMKV\n\n" +
		"garbage line mentioning 3, 4, in the middle\n" +
		" 5, 6, indented lines do not count\n" +
		"4, 1, metadata with a blank sequence, 9 aa\n\n" +
		"4, 2, metadata followed by another block, 9 aa\n" +
		"2, 7, last block without separator, Unknown aa\nMK"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := LoadLedger(path)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())
	assert.True(t, l.IsProcessed(1, 1))
	assert.True(t, l.IsProcessed(1, 12))
	assert.True(t, l.IsProcessed(2, 7))
	assert.False(t, l.IsProcessed(3, 4))
	assert.False(t, l.IsProcessed(5, 6))
	assert.False(t, l.IsProcessed(4, 1))
	assert.False(t, l.IsProcessed(4, 2))
	assert.False(t, l.IsProcessed(1, 2), "1, 12 must not imply 1, 1x prefixes")
}

func TestSinkAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	ledger := NewLedger()
	sink, err := OpenSink(path, ledger)
	require.NoError(t, err)

	require.NoError(t, sink.Append(record(1, 1, "MSDNGPQ")))
	require.NoError(t, sink.Append(record(1, 2, "NQRNAPR")))
	assert.True(t, ledger.IsProcessed(1, 2))

	err = sink.Append(record(1, 1, "OTHER"))
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"1, 1, nucleocapsid phosphoprotein [Severe acute respiratory syndrome coronavirus 2], 419 aa\nMSDNGPQ\n\n"+
		"1, 2, nucleocapsid phosphoprotein [Severe acute respiratory syndrome coronavirus 2], 419 aa\nNQRNAPR\n\n",
		string(raw))
}

func TestSinkAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	first := record(1, 1, "MK").Block()
	require.NoError(t, os.WriteFile(path, []byte(first), 0o644))

	ledger, err := LoadLedger(path)
	require.NoError(t, err)
	sink, err := OpenSink(path, ledger)
	require.NoError(t, err)
	defer sink.Close()

	require.ErrorIs(t, sink.Append(record(1, 1, "MK")), ErrDuplicate)
	require.NoError(t, sink.Append(record(2, 1, "MV")))

	reloaded, err := LoadLedger(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first+record(2, 1, "MV").Block(), string(raw))
}

func TestOpenSinkBadPath(t *testing.T) {
	_, err := OpenSink(filepath.Join(t.TempDir(), "missing", "out.txt"), NewLedger())
	require.Error(t, err)
	var perr *os.PathError
	assert.ErrorAs(t, err, &perr)
}

func TestLoadLedgerIgnoresTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte(record(1, 1, "MK").Block()+"1, 2, cut short, 419 aa\n"), 0o644))

	l, err := LoadLedger(path)
	require.NoError(t, err)
	assert.True(t, l.IsProcessed(1, 1))
	assert.False(t, l.IsProcessed(1, 2))
}

func TestOpenSinkTerminatesTornTail(t *testing.T) {
	for _, tc := range []struct {
		name string
		tail string
	}{
		{"metadata only", "1, 2, cut short, 419 aa"},
		{"metadata and newline", "1, 2, cut short, 419 aa\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.txt")
			first := record(1, 1, "MK").Block()
			require.NoError(t, os.WriteFile(path, []byte(first+tc.tail), 0o644))

			ledger, err := LoadLedger(path)
			require.NoError(t, err)
			require.False(t, ledger.IsProcessed(1, 2))

			sink, err := OpenSink(path, ledger)
			require.NoError(t, err)
			require.NoError(t, sink.Append(record(1, 2, "MV")))
			require.NoError(t, sink.Close())

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, first+"1, 2, cut short, 419 aa\n\n"+record(1, 2, "MV").Block(), string(raw))

			reloaded, err := LoadLedger(path)
			require.NoError(t, err)
			assert.Equal(t, 2, reloaded.Len())
			assert.True(t, reloaded.IsProcessed(1, 2))
		})
	}
}
