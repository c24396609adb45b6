package crack

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsLogSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	l := NewStatsLog(path)

	require.NoError(t, l.Snapshot("90a567c7"))
	require.NoError(t, l.Snapshot("bc28c067"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + two snapshots

	require.Equal(t, append([]string{"Time", "Fingerprint"}, DefaultSnmp.Header()...), rows[0])
	require.Equal(t, "90a567c7", rows[1][1])
	require.Equal(t, "bc28c067", rows[2][1])
	require.Len(t, rows[1], len(rows[0]))
}

func TestStatsLogDisabled(t *testing.T) {
	var l *StatsLog
	require.NoError(t, l.Snapshot("90a567c7"))
	require.Nil(t, NewStatsLog(""))
}
