// Package engine implements the workflow execution engine: the uniform
// node contract, hierarchical naming and environment preparation, the
// tool-node lifecycle state machine, and the store-backed metadata
// bookkeeping that makes one node's output discoverable to the rest of
// the tree.
package engine

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/skelet0wn-go/skelet0wn/pkg/log"
	"github.com/skelet0wn-go/skelet0wn/pkg/naming"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

// Node is the uniform contract every execution element — tool wrapper or
// combinator — implements. PrepareEnvironment must be called exactly
// once, recursively, before Run.
type Node interface {
	// PrepareEnvironment assigns this node's hierarchical name and
	// ensures its private output directory and the shared directory
	// exist. Idempotent: repeated calls with identical arguments
	// produce identical results and never fail because a directory
	// already exists.
	PrepareEnvironment(ctx context.Context, outputDir, sharedDir, name string) error

	// Run executes the node's action against the given store and run
	// identifier. It stores exactly one step-metadata record on
	// success, and attempts a best-effort one on failure paths where
	// partial work is recoverable.
	Run(ctx context.Context, db store.Store, runID string) error

	// Interrupt sends a best-effort stop signal. It never returns an
	// error and is safe to call on a node that is not running.
	Interrupt(ctx context.Context)
}

// Identity holds the fields every Node embeds: its hierarchical name,
// tree depth, private output directory, the shared directory, and a
// logger bound to both.
type Identity struct {
	Name      string
	Depth     int
	OutputDir string
	SharedDir string
	Logger    zerolog.Logger
}

// Prepare fills in an Identity and creates the directories it names. Call
// it from a Node's PrepareEnvironment override before recursing into
// children.
func (id *Identity) Prepare(outputDir, sharedDir, name string) error {
	id.Name = name
	id.Depth = naming.Depth(name)
	id.OutputDir = outputDir + "/" + name
	id.SharedDir = sharedDir
	id.Logger = log.ForNode(name, id.Depth)

	if err := os.MkdirAll(id.OutputDir, 0o755); err != nil {
		return &NodeError{Node: name, Msg: "could not create output directory", Cause: err}
	}
	if err := os.MkdirAll(sharedDir, 0o755); err != nil {
		return &NodeError{Node: name, Msg: "could not create shared directory", Cause: err}
	}
	return nil
}

// Log writes one line at the given depth increment and level, matching
// the original tool's Limb.log helper.
func (id *Identity) Log(level zerolog.Level, depthIncrement int, msg string) {
	pad := ""
	for i := 0; i < depthIncrement; i++ {
		pad += " "
	}
	id.Logger.WithLevel(level).Msg(pad + "* " + msg)
}

// StoreMetadata appends one step record to the store. outputCollection
// and outputID may be nil/unset when the node has no principal output
// (e.g. a failed run). extra is merged into the stored document.
func StoreMetadata(ctx context.Context, db store.Store, id *Identity, class, runID string, outputCollection *string, outputID interface{}, extra map[string]interface{}) error {
	return db.StoreStep(ctx, store.StepInput{
		Name:             id.Name,
		Class:            class,
		RunID:            runID,
		OutputCollection: outputCollection,
		OutputID:         outputID,
		Extra:            extra,
	})
}
