package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestTraceLatestSession(t *testing.T) {
	dbPath := demoJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Session demo-2")
	assert.Contains(t, out, "water plants")
	assert.NotContains(t, out, "clean the house", "demo-1 entries are not shown")
}

func TestTraceSessions(t *testing.T) {
	dbPath := demoJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--sessions")
	require.NoError(t, err)
	assert.Equal(t, "demo-1\tseq 1-4\t4 entries\ndemo-2\tseq 5-7\t3 entries\n", out)
}

func TestTraceFiltersJSON(t *testing.T) {
	dbPath := demoJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--session", "demo-1", "--after", "1", "--limit", "2")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "demo-1", resp.Data.Session)
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, int64(2), resp.Data.Entries[0].Seq)
	assert.Equal(t, "seed", resp.Data.Entries[0].Op)
	assert.Equal(t, int64(3), resp.Data.Entries[1].Seq)
	assert.Equal(t, "delete", resp.Data.Entries[1].Op)
	assert.Equal(t, "1", resp.Data.Entries[1].Key)
}

func TestTraceEmptyJournal(t *testing.T) {
	dbPath := writeJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "Journal is empty.\n", out)
}

func TestTraceNegativeLimit(t *testing.T) {
	dbPath := writeJournal(t)

	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
