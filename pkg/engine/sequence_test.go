package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelet0wn-go/skelet0wn/pkg/containerrt"
	"github.com/skelet0wn-go/skelet0wn/pkg/engine"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
	"github.com/skelet0wn-go/skelet0wn/pkg/types"
)

func newNamedTool(name string, runtime containerrt.Runtime) *engine.ToolNode {
	iface := types.InterfaceDescriptor{
		Inputs:  []types.InputSpec{{Name: "target", Mandatory: true}},
		Command: []string{"nmap", "{{.target}}"},
		Image:   types.ImageSpec{Context: "./tools/nmap", Tag: "skelet0wn/" + name + ":latest"},
	}
	mapping := types.MappingDescriptor{
		"target": types.Provider{Kind: types.ProviderStatic, Value: "10.0.0.1"},
	}
	return engine.NewToolNode(name, iface, mapping, &fakeParser{collection: "hosts"}, runtime)
}

func TestSequence_RunsChildrenInOrderAndNamesThemBySlot(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	seq := engine.NewSequence(newNamedTool("a", runtime), newNamedTool("b", runtime))

	require.NoError(t, seq.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	db := store.NewMemory()
	require.NoError(t, seq.Run(context.Background(), db, "run-1"))

	steps := db.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "n0.0", steps[0].Name)
	assert.Equal(t, "n0.1", steps[1].Name)
	assert.Equal(t, "n0", steps[2].Name)
}

func TestSequence_StopOnFailurePropagatesAndSkipsRemaining(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	failing := newNamedTool("fails", runtime)
	runtime.ExitCodes["n0.0"] = 1
	ok := newNamedTool("ok", runtime)

	seq := engine.NewSequence(failing, ok) // StopOnFailure defaults true
	require.NoError(t, seq.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	db := store.NewMemory()
	err := seq.Run(context.Background(), db, "run-1")
	assert.Error(t, err)

	steps := db.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "n0.0", steps[0].Name)
}

func TestSequence_PermissiveVisitsEveryChild(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	runtime.ExitCodes["n0.0"] = 1

	seq := engine.NewSequence(newNamedTool("fails", runtime), newNamedTool("ok", runtime))
	seq.StopOnFailure = false

	require.NoError(t, seq.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	db := store.NewMemory()
	require.NoError(t, seq.Run(context.Background(), db, "run-1"))

	steps := db.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "n0.0", steps[0].Name)
	assert.Equal(t, "n0.1", steps[1].Name)
	assert.Equal(t, "n0", steps[2].Name)
}

func TestSequence_StopOnSuccessStopsAfterFirstSuccess(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()

	seq := engine.NewSequence(newNamedTool("ok", runtime), newNamedTool("never", runtime))
	seq.StopOnSuccess = true

	require.NoError(t, seq.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	db := store.NewMemory()
	require.NoError(t, seq.Run(context.Background(), db, "run-1"))

	steps := db.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "n0.0", steps[0].Name)
	assert.Equal(t, "n0", steps[1].Name)
}

func TestSequence_NestedNaming(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	inner := engine.NewSequence(newNamedTool("a", runtime), newNamedTool("b", runtime))
	outer := engine.NewSequence(inner, newNamedTool("c", runtime))

	require.NoError(t, outer.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	db := store.NewMemory()
	require.NoError(t, outer.Run(context.Background(), db, "run-1"))

	steps := db.Steps()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	assert.Contains(t, names, "n0.0.0")
	assert.Contains(t, names, "n0.0.1")
	assert.Contains(t, names, "n0.0")
	assert.Contains(t, names, "n0.1")
	assert.Contains(t, names, "n0")
}
