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

// fakeParser records its inputs and returns a fixed output pointer.
type fakeParser struct {
	collection string
	calls      int
}

func (p *fakeParser) StoreResults(ctx context.Context, db store.Store, outputDir, runID string) (*string, interface{}, error) {
	p.calls++
	id, err := db.InsertOne(ctx, p.collection, map[string]interface{}{"parsed": true})
	if err != nil {
		return nil, nil, err
	}
	collection := p.collection
	return &collection, id, nil
}

func newTestTool(t *testing.T, runtime containerrt.Runtime, parser engine.ResultParser) *engine.ToolNode {
	t.Helper()
	iface := types.InterfaceDescriptor{
		Inputs:  []types.InputSpec{{Name: "target", Mandatory: true}},
		Command: []string{"nmap", "{{.target}}"},
		Image:   types.ImageSpec{Context: "./tools/nmap", Tag: "skelet0wn/nmap:latest"},
	}
	mapping := types.MappingDescriptor{
		"target": types.Provider{Kind: types.ProviderStatic, Value: "10.0.0.1"},
	}
	return engine.NewToolNode("nmap", iface, mapping, parser, runtime)
}

func TestToolNode_HappyPath(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	parser := &fakeParser{collection: "hosts"}
	node := newTestTool(t, runtime, parser)

	require.NoError(t, node.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	db := store.NewMemory()
	require.NoError(t, node.Run(context.Background(), db, "run-1"))

	steps := db.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "n0", steps[0].Name)
	assert.NotNil(t, steps[0].OutputCollection)
	assert.Equal(t, "hosts", *steps[0].OutputCollection)
	assert.Equal(t, 1, parser.calls)
}

func TestToolNode_RunBeforePrepareIsStateError(t *testing.T) {
	runtime := containerrt.NewFakeRuntime()
	parser := &fakeParser{collection: "hosts"}
	node := newTestTool(t, runtime, parser)

	db := store.NewMemory()
	err := node.Run(context.Background(), db, "run-1")
	var stateErr *engine.StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestToolNode_MandatoryInputMissingWritesFailureMetadata(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	iface := types.InterfaceDescriptor{
		Inputs:  []types.InputSpec{{Name: "target", Mandatory: true}},
		Command: []string{"nmap", "{{.target}}"},
		Image:   types.ImageSpec{Context: "./tools/nmap", Tag: "skelet0wn/nmap:latest"},
	}
	node := engine.NewToolNode("nmap", iface, types.MappingDescriptor{}, &fakeParser{collection: "hosts"}, runtime)
	require.NoError(t, node.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	db := store.NewMemory()
	err := node.Run(context.Background(), db, "run-1")
	assert.Error(t, err)

	steps := db.Steps()
	require.Len(t, steps, 1)
	assert.Nil(t, steps[0].OutputCollection)
}

func TestToolNode_AcceptsExitCode137(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	parser := &fakeParser{collection: "hosts"}
	node := newTestTool(t, runtime, parser)
	require.NoError(t, node.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))
	runtime.ExitCodes["n0"] = 137

	db := store.NewMemory()
	require.NoError(t, node.Run(context.Background(), db, "run-1"))

	steps := db.Steps()
	require.Len(t, steps, 1)
	require.NotNil(t, steps[0].Docker)
	assert.Equal(t, "137", steps[0].Docker.RunStatus)
}

func TestToolNode_NonAcceptedExitCodeFails(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	parser := &fakeParser{collection: "hosts"}
	node := newTestTool(t, runtime, parser)
	require.NoError(t, node.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))
	runtime.ExitCodes["n0"] = 1

	db := store.NewMemory()
	err := node.Run(context.Background(), db, "run-1")
	var runErr *containerrt.ContainerRunError
	assert.ErrorAs(t, err, &runErr)

	steps := db.Steps()
	require.Len(t, steps, 1)
	assert.Nil(t, steps[0].OutputCollection)
}

func TestToolNode_InterruptBeforeRunIsNoop(t *testing.T) {
	dir := t.TempDir()
	runtime := containerrt.NewFakeRuntime()
	parser := &fakeParser{collection: "hosts"}
	node := newTestTool(t, runtime, parser)
	require.NoError(t, node.PrepareEnvironment(context.Background(), dir, dir+"/shared", "n0"))

	node.Interrupt(context.Background())
}
