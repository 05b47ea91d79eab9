package engine

import (
	"context"

	"github.com/skelet0wn-go/skelet0wn/pkg/metrics"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

// Transform is the pure function a Transformer applies to the full list
// of documents its query matched.
type Transform func(docs []map[string]interface{}) interface{}

// Transformer runs a database query, reduces the results with a pure
// Transform, and publishes the product into the "temp" collection so a
// downstream node can pick it up via a dynamic {root, collection: "temp"}
// provider — most commonly {root: "previous"}.
type Transformer struct {
	Identity

	Collection     string
	FilterCrit     map[string]interface{}
	Projection     map[string]interface{}
	Transformation Transform
}

// NewTransformer constructs a Transformer node.
func NewTransformer(collection string, filterCrit, projection map[string]interface{}, transformation Transform) *Transformer {
	return &Transformer{Collection: collection, FilterCrit: filterCrit, Projection: projection, Transformation: transformation}
}

func (t *Transformer) PrepareEnvironment(_ context.Context, outputDir, sharedDir, name string) error {
	return t.Identity.Prepare(outputDir, sharedDir, name)
}

// Run executes the find, reduces the results, and stores the product in
// "temp". It propagates any store failure (spec §4.7/§7: Transformer
// errors are never absorbed by the node itself).
func (t *Transformer) Run(ctx context.Context, db store.Store, runID string) error {
	docs, err := db.Find(ctx, t.Collection, t.FilterCrit, t.Projection)
	if err != nil {
		metrics.NodeRunsTotal.WithLabelValues("transformer", "failure").Inc()
		return &NodeError{Node: t.Name, Class: "transformer", Msg: "query failed", Cause: err}
	}

	result := t.Transformation(docs)

	id, err := db.InsertOne(ctx, "temp", map[string]interface{}{"result": result})
	if err != nil {
		metrics.NodeRunsTotal.WithLabelValues("transformer", "failure").Inc()
		return &NodeError{Node: t.Name, Class: "transformer", Msg: "failed to store transformed result", Cause: err}
	}

	collection := "temp"
	if err := StoreMetadata(ctx, db, &t.Identity, "transformer", runID, &collection, id, nil); err != nil {
		return err
	}
	metrics.NodeRunsTotal.WithLabelValues("transformer", "success").Inc()
	return nil
}

// Interrupt is a no-op: a Transformer's work is a single query/insert
// pair with no external process to signal.
func (t *Transformer) Interrupt(_ context.Context) {}

var _ Node = (*Transformer)(nil)
