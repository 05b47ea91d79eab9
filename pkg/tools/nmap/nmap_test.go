package nmap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelet0wn-go/skelet0wn/pkg/store"
	"github.com/skelet0wn-go/skelet0wn/pkg/tools/nmap"
)

const sampleXML = `<?xml version="1.0"?>
<nmaprun>
  <host>
    <status state="up"/>
    <address addr="10.0.0.1" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="22"><state state="open"/></port>
      <port protocol="tcp" portid="80"><state state="open"/></port>
    </ports>
  </host>
</nmaprun>`

func TestParser_StoreResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, nmap.ArtifactName), []byte(sampleXML), 0o644))

	db := store.NewMemory()
	parser := nmap.NewParser()
	collection, id, err := parser.StoreResults(context.Background(), db, dir, "run-1")
	require.NoError(t, err)
	require.NotNil(t, collection)
	assert.Equal(t, "files", *collection)
	assert.NotNil(t, id)

	machines := db.Snapshot("machines")
	require.Len(t, machines, 1)
	ip, ok := machines[0]["IP"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", ip["ipv4"])

	ports, ok := machines[0]["ports"].(map[string]interface{})
	require.True(t, ok)
	p22, ok := ports["22"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "open", p22["status"])
}

func TestParser_MissingArtifactIsAnError(t *testing.T) {
	dir := t.TempDir()
	db := store.NewMemory()
	_, _, err := nmap.NewParser().StoreResults(context.Background(), db, dir, "run-1")
	assert.Error(t, err)
}
