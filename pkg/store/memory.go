package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process fake implementing Store, used by engine tests
// to exercise control flow without a live MongoDB.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]map[string]interface{}
	steps       []StepRecord
	seq         int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{collections: map[string][]map[string]interface{}{}}
}

func (m *Memory) nextID() string {
	m.seq++
	return fmt.Sprintf("id-%d", m.seq)
}

func (m *Memory) StoreStep(_ context.Context, step StepInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, StepRecord{
		ID:               m.nextID(),
		Name:             step.Name,
		Class:            step.Class,
		RunID:            step.RunID,
		OutputCollection: step.OutputCollection,
		OutputID:         step.OutputID,
		Command:          step.Command,
		Docker:           step.Docker,
		Extra:            step.Extra,
	})
	return nil
}

func (m *Memory) FindLatestStep(_ context.Context, name, runID string) (*StepRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []StepRecord
	for _, s := range m.steps {
		if s.Name == name && s.RunID == runID && s.OutputCollection != nil && s.OutputID != nil {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}
	// Most recently stored wins; StoreStep appends in execution order.
	latest := candidates[len(candidates)-1]
	return &latest, true, nil
}

func (m *Memory) FindOne(_ context.Context, collection string, filter, projection map[string]interface{}) (map[string]interface{}, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			return project(doc, projection), true, nil
		}
	}
	return nil, false, nil
}

func (m *Memory) Find(_ context.Context, collection string, filter, projection map[string]interface{}) ([]map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []map[string]interface{}
	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			out = append(out, project(doc, projection))
		}
	}
	return out, nil
}

func (m *Memory) InsertOne(_ context.Context, collection string, doc map[string]interface{}) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID()
	stored := map[string]interface{}{"_id": id}
	for k, v := range doc {
		stored[k] = v
	}
	m.collections[collection] = append(m.collections[collection], stored)
	return id, nil
}

func (m *Memory) UpdateOne(_ context.Context, collection string, filter, update map[string]interface{}, upsert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			applyUpdate(doc, update)
			docs[i] = doc
			return nil
		}
	}
	if !upsert {
		return nil
	}
	doc := map[string]interface{}{"_id": m.nextID()}
	for k, v := range filter {
		dottedSet(doc, splitDotted(k), v)
	}
	applyUpdate(doc, update)
	m.collections[collection] = append(m.collections[collection], doc)
	return nil
}

func applyUpdate(doc map[string]interface{}, update map[string]interface{}) {
	if set, ok := update["$set"].(map[string]interface{}); ok {
		for k, v := range set {
			dottedSet(doc, splitDotted(k), v)
		}
	}
	if add, ok := update["$addToSet"].(map[string]interface{}); ok {
		for k, v := range add {
			path := splitDotted(k)
			existing, _ := dottedGet(doc, path)
			list, _ := existing.([]interface{})
			for _, item := range list {
				if equalValue(item, v) {
					return
				}
			}
			dottedSet(doc, path, append(list, v))
		}
	}
}

func (m *Memory) Close(_ context.Context) error { return nil }

// Snapshot returns a sorted, stable copy of one collection's documents,
// used by tests asserting on end-to-end scenario output.
func (m *Memory) Snapshot(collection string) []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := append([]map[string]interface{}{}, m.collections[collection]...)
	sort.Slice(docs, func(i, j int) bool {
		return fmt.Sprint(docs[i]["_id"]) < fmt.Sprint(docs[j]["_id"])
	})
	return docs
}

// Steps returns a copy of every stored step record, in insertion order.
func (m *Memory) Steps() []StepRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StepRecord{}, m.steps...)
}
