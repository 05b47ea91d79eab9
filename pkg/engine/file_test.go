package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelet0wn-go/skelet0wn/pkg/engine"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

func TestUploadFileThenShareFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	hostFile := filepath.Join(dir, "wordlist.txt")
	require.NoError(t, os.WriteFile(hostFile, []byte("password123\nhunter2\n"), 0o644))

	sharedDir := filepath.Join(dir, "shared")
	db := store.NewMemory()

	upload := engine.NewUploadFile(hostFile, "wordlist.txt")
	require.NoError(t, upload.PrepareEnvironment(context.Background(), dir, sharedDir, "n0.0"))
	require.NoError(t, upload.Run(context.Background(), db, "run-1"))

	share := engine.NewShareFile("wordlist.txt")
	require.NoError(t, share.PrepareEnvironment(context.Background(), dir, sharedDir, "n0.1"))
	require.NoError(t, share.Run(context.Background(), db, "run-1"))

	got, err := os.ReadFile(filepath.Join(sharedDir, "wordlist.txt"))
	require.NoError(t, err)
	want, err := os.ReadFile(hostFile)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	steps := db.Steps()
	require.Len(t, steps, 2)
	require.NotNil(t, steps[1].OutputCollection)
	assert.Equal(t, "temp", *steps[1].OutputCollection)

	temp := db.Snapshot("temp")
	require.Len(t, temp, 1)
	result, ok := temp[0]["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/mnt/shared/wordlist.txt", result["filepath"])
}
