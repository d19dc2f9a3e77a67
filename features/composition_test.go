package features

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	input := "" +
		"1, 1, nucleocapsid phosphoprotein, partial [SARS-CoV-2], 419 aa\n" +
		"MSDNGPQ\n" +
		"\n" +
		"1, 2, no sequence follows, Unknown aa\n" +
		"\n" +
		">QHD43423.2 nucleocapsid phosphoprotein\n" +
		"MSDN GPQ\n" +
		"NQRN\n" +
		"2, 1, last one without separator, 3 aa\n" +
		"mkv"

	blocks, skipped, err := ParseBlocks(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)

	want := []Block{
		{Page: 1, Item: 1, Title: "nucleocapsid phosphoprotein, partial [SARS-CoV-2]", AaLength: "419", Sequence: "MSDNGPQ"},
		{Header: "QHD43423.2 nucleocapsid phosphoprotein", Sequence: "MSDNGPQNQRN"},
		{Page: 2, Item: 1, Title: "last one without separator", AaLength: "3", Sequence: "mkv"},
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("ParseBlocks() mismatch (-want +got):\n%s", diff)
	}
}

func TestComposition(t *testing.T) {
	counts := Composition("MSDnn*-1x")
	assert.Equal(t, 1, counts['M'-'A'])
	assert.Equal(t, 1, counts['S'-'A'])
	assert.Equal(t, 1, counts['D'-'A'])
	assert.Equal(t, 2, counts['N'-'A'])
	assert.Equal(t, 1, counts['X'-'A'])
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 6, total)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Row{
		{Counts: Composition("AAZ"), Label: "nucleocapsid"},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "A,B,C,D,E,F,G,H,I,J,K,L,M,N,O,P,Q,R,S,T,U,V,W,X,Y,Z,Label", lines[0])
	assert.Equal(t, "2,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,1,nucleocapsid", lines[1])
}

func TestLoadFileAndInputs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spike.txt"),
		[]byte("1, 1, s, 3 aa\nMKV\n\n1, 2, s, 2 aa\nMK\n\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "envelope.txt"),
		[]byte(">E1.1 envelope\nMYS\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	inputs, err := Inputs([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "envelope.txt"), filepath.Join(dir, "spike.txt")}, inputs)

	rows, skipped, err := LoadFile(inputs[1])
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, rows, 2)
	assert.Equal(t, "spike", rows[0].Label)
	assert.Equal(t, 1, rows[1].Counts['K'-'A'])

	_, err = Inputs([]string{filepath.Join(dir, "absent")})
	require.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "coronavirus_data", Label("/data/coronavirus_data.txt"))
	assert.Equal(t, "archive.tar", Label("archive.tar.gz"))
	assert.Equal(t, "plain", Label("plain"))
}
