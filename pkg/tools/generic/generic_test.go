package generic_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelet0wn-go/skelet0wn/pkg/store"
	"github.com/skelet0wn-go/skelet0wn/pkg/tools/generic"
)

func TestParser_StoresArtifactBytes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, generic.ArtifactName), []byte("hello world"), 0o644))

	db := store.NewMemory()
	parser := generic.NewParser("results")
	collection, id, err := parser.StoreResults(context.Background(), db, dir, "run-1")
	require.NoError(t, err)
	require.NotNil(t, collection)
	assert.Equal(t, "results", *collection)
	assert.NotNil(t, id)

	docs := db.Snapshot("results")
	require.Len(t, docs, 1)
	assert.Equal(t, "hello world", docs[0]["content_decoded"])
}

func TestParser_NoArtifactIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	db := store.NewMemory()
	collection, id, err := generic.NewParser("results").StoreResults(context.Background(), db, dir, "run-1")
	require.NoError(t, err)
	assert.Nil(t, collection)
	assert.Nil(t, id)
}
