// Package store defines the Metadata Store contract: the document
// collections the engine reads and writes (steps, temp, files, and
// arbitrary tool-specific collections), and the two backends that
// implement it — a MongoDB-backed store for production use and an
// in-memory fake for tests that exercise engine control flow without a
// live database.
package store

import (
	"context"
	"time"
)

// StepInput is what a Node supplies when recording one execution.
type StepInput struct {
	Name             string
	Class            string
	RunID            string
	OutputCollection *string
	OutputID         interface{}
	Command          []string
	Docker           *DockerMetadata
	Extra            map[string]interface{}
}

// DockerMetadata records the runner artifacts of one tool node execution.
type DockerMetadata struct {
	BuildLog  string
	RunLog    string
	RunStatus string
}

// StepRecord is one decoded "steps" document.
type StepRecord struct {
	ID               interface{}
	Name             string
	Class            string
	RunID            string
	Time             time.Time
	OutputCollection *string
	OutputID         interface{}
	Command          []string
	Docker           *DockerMetadata
	Extra            map[string]interface{}
}

// Store is the Metadata Store contract the engine depends on. All
// operations take a context for cancellation/timeout, matching the
// teacher's pattern of threading context through every blocking call to
// the container and storage layers.
type Store interface {
	// StoreStep appends one step-metadata document. Nodes never
	// mutate or delete prior step records within a run.
	StoreStep(ctx context.Context, step StepInput) error

	// FindLatestStep returns the most recent step record for name+runID
	// whose OutputCollection and OutputID are both non-nil — the
	// resolver's "previous"/absolute-name lookup query from spec §4.3.
	FindLatestStep(ctx context.Context, name, runID string) (*StepRecord, bool, error)

	// FindOne runs a single-document query with a free-form equality
	// filter (dotted paths allowed) and a projection; when the
	// projection is non-empty, only its keys are populated in the
	// result, plus _id unless the projection sets "_id" to 0.
	FindOne(ctx context.Context, collection string, filter, projection map[string]interface{}) (map[string]interface{}, bool, error)

	// Find runs a multi-document query with the same filter/projection
	// semantics as FindOne.
	Find(ctx context.Context, collection string, filter, projection map[string]interface{}) ([]map[string]interface{}, error)

	// InsertOne inserts a document and returns its assigned ID.
	InsertOne(ctx context.Context, collection string, doc map[string]interface{}) (interface{}, error)

	// UpdateOne applies an update document to the first document
	// matching filter; when upsert is true and nothing matches, a new
	// document is created. update uses the Mongo "$set"/"$addToSet"
	// operator shape so tool wrappers can express partial updates.
	UpdateOne(ctx context.Context, collection string, filter, update map[string]interface{}, upsert bool) error

	// Close releases any underlying connection.
	Close(ctx context.Context) error
}

// dottedGet descends a dotted path through a nested map, returning
// (value, true) on success or (nil, false) the moment an intermediate
// key is absent or not itself a map — the "unresolvable, not an error"
// behavior spec §4.3/§9 requires.
func dottedGet(doc map[string]interface{}, path []string) (interface{}, bool) {
	var cur interface{} = doc
	for _, seg := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// dottedSet writes value at a dotted path inside doc, creating
// intermediate maps as needed.
func dottedSet(doc map[string]interface{}, path []string, value interface{}) {
	cur := doc
	for i, seg := range path {
		if i == len(path)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[seg] = next
		}
		cur = next
	}
}

func matches(doc, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := dottedGet(doc, splitDotted(key))
		if !ok {
			return false
		}
		if !equalValue(got, want) {
			return false
		}
	}
	return true
}

func equalValue(a, b interface{}) bool {
	return a == b
}

func splitDotted(key string) []string {
	out := []string{}
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			out = append(out, key[start:i])
			start = i + 1
		}
	}
	return append(out, key[start:])
}

func project(doc map[string]interface{}, projection map[string]interface{}) map[string]interface{} {
	if len(projection) == 0 {
		return doc
	}
	out := map[string]interface{}{}
	for key := range projection {
		if key == "_id" {
			continue
		}
		if v, ok := dottedGet(doc, splitDotted(key)); ok {
			dottedSet(out, splitDotted(key), v)
		}
	}
	if id, ok := doc["_id"]; ok && projection["_id"] != 0 {
		out["_id"] = id
	}
	return out
}
