package export

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamped(t *testing.T) {
	name := Timestamped("soc_rule_efficiency", "csv")
	assert.Regexp(t, regexp.MustCompile(`^soc_rule_efficiency_\d{8}_\d{6}\.csv$`), name)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out.csv")
	header := []string{"RuleName", "Severity", "Efficiency"}
	rows := [][]string{
		{"Suspicious sign-in burst", "Medium", "Good"},
		{"Rule, with comma", "High", "Needs Review"},
	}

	require.NoError(t, WriteCSV(filename, header, rows))

	gotHeader, gotRows, err := ReadCSV(filename)
	require.NoError(t, err)
	assert.Equal(t, header, gotHeader)
	assert.Equal(t, rows, gotRows)
}

func TestWriteCSVNoRows(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCSV(filename, []string{"A", "B"}, nil))

	header, rows, err := ReadCSV(filename)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, header)
	assert.Empty(t, rows)
}

func TestWriteCSVBadPath(t *testing.T) {
	err := WriteCSV(filepath.Join(t.TempDir(), "missing", "out.csv"), []string{"A"}, nil)
	require.Error(t, err)
}
