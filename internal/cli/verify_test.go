package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/store"
)

func TestVerify_Match(t *testing.T) {
	db := recordSession(t, "sess-1", "sess-2")

	out, err := executeCommand(t, NewVerifyCommand, "json", "--db", db)
	require.NoError(t, err)

	var result VerifyResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 2, result.TotalSessions)
	assert.True(t, result.AllMatch)
	for _, s := range result.Sessions {
		assert.Equal(t, s.StoredHash, s.RecomputedHash)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	db := recordSession(t, "sess-1")

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		"UPDATE dispatches SET frame_start = 1234 WHERE seq = 3")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeCommand(t, NewVerifyCommand, "text", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ sess-1")
	assert.Contains(t, out, "seq 3: frame start 1234, plan has 2000")
	assert.Contains(t, out, "Plan verification failed")
}

func TestVerify_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeCommand(t, NewVerifyCommand, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found in database.")
}
