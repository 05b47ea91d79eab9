package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Mongo is the production Store backend: one MongoDB database holding
// the steps/temp/files collections plus whatever tool-specific
// collections wrapper nodes write into.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB at uri and returns a Mongo store bound to
// database dbName.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{client: client, db: client.Database(dbName)}, nil
}

func (m *Mongo) StoreStep(ctx context.Context, step StepInput) error {
	doc := bson.M{
		"name":             step.Name,
		"class":            step.Class,
		"run_id":           step.RunID,
		"time":             time.Now().UTC().Format("20060102-150405"),
		"outputCollection": nullable(step.OutputCollection),
		"outputID":         step.OutputID,
	}
	if len(step.Command) > 0 {
		doc["command"] = step.Command
	}
	if step.Docker != nil {
		doc["docker"] = bson.M{
			"buildLog":  step.Docker.BuildLog,
			"runLog":    step.Docker.RunLog,
			"runStatus": step.Docker.RunStatus,
		}
	}
	for k, v := range step.Extra {
		doc[k] = v
	}
	_, err := m.db.Collection("steps").InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert step metadata: %w", err)
	}
	return nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func (m *Mongo) FindLatestStep(ctx context.Context, name, runID string) (*StepRecord, bool, error) {
	filter := bson.M{
		"name":             name,
		"run_id":           runID,
		"outputCollection": bson.M{"$ne": nil},
		"outputID":         bson.M{"$ne": nil},
	}
	opts := options.FindOne().SetSort(bson.M{"_id": -1})

	var raw bson.M
	err := m.db.Collection("steps").FindOne(ctx, filter, opts).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find latest step: %w", err)
	}

	rec := &StepRecord{
		ID:       raw["_id"],
		Name:     str(raw["name"]),
		Class:    str(raw["class"]),
		RunID:    str(raw["run_id"]),
		OutputID: raw["outputID"],
	}
	if oc, ok := raw["outputCollection"].(string); ok {
		rec.OutputCollection = &oc
	}
	return rec, true, nil
}

func (m *Mongo) FindOne(ctx context.Context, collection string, filter, projection map[string]interface{}) (map[string]interface{}, bool, error) {
	opts := options.FindOne()
	if len(projection) > 0 {
		opts.SetProjection(bson.M(projection))
	}
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M(filter), opts).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find one in %s: %w", collection, err)
	}
	return toGenericMap(raw), true, nil
}

func (m *Mongo) Find(ctx context.Context, collection string, filter, projection map[string]interface{}) ([]map[string]interface{}, error) {
	opts := options.Find()
	if len(projection) > 0 {
		opts.SetProjection(bson.M(projection))
	}
	cur, err := m.db.Collection(collection).Find(ctx, bson.M(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []map[string]interface{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode document in %s: %w", collection, err)
		}
		out = append(out, toGenericMap(raw))
	}
	return out, cur.Err()
}

func (m *Mongo) InsertOne(ctx context.Context, collection string, doc map[string]interface{}) (interface{}, error) {
	res, err := m.db.Collection(collection).InsertOne(ctx, bson.M(doc))
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return res.InsertedID, nil
}

func (m *Mongo) UpdateOne(ctx context.Context, collection string, filter, update map[string]interface{}, upsert bool) error {
	opts := options.UpdateOne().SetUpsert(upsert)
	_, err := m.db.Collection(collection).UpdateOne(ctx, bson.M(filter), bson.M(update), opts)
	if err != nil {
		return fmt.Errorf("update in %s: %w", collection, err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toGenericMap(m bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = convertBSON(v)
	}
	return out
}

func convertBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return toGenericMap(t)
	case bson.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = convertBSON(e.Value)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = convertBSON(e)
		}
		return out
	case bson.Binary:
		// The driver round-trips a Go []byte as BSON binary subtype 0x00,
		// never back into []byte on its own; unwrap it here so callers
		// like engine.ShareFile can type-assert doc["content"].([]byte)
		// the same way whether the document came from Mongo or Memory.
		return t.Data
	default:
		return v
	}
}
