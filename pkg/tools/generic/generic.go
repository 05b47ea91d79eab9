// Package generic is the reference generic-tool-wrapper template:
// direct port of the retrieved generic_tool_template/node.py's
// store_results. It expects its container to have written exactly one
// artifact file into the node's output directory and inserts its raw
// bytes, decoded as UTF-8 when possible, into a caller-named collection.
// Tool classes with real structured output (see pkg/tools/nmap) replace
// this with their own ResultParser; this one exists so the engine has a
// runnable, minimal wrapper to exercise end to end.
package generic

import (
	"context"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

// ArtifactName is the filename every generic tool is expected to write
// into /mnt/skelet0wn/, matching the template's default.
const ArtifactName = "output.txt"

// Parser is the generic ResultParser: read ArtifactName from the node's
// output directory, store its bytes (plus a decoded string when valid
// UTF-8) in Collection, and report that pointer.
type Parser struct {
	Collection string
}

// NewParser constructs a generic Parser writing to collection.
func NewParser(collection string) *Parser {
	return &Parser{Collection: collection}
}

// StoreResults implements engine.ResultParser.
func (p *Parser) StoreResults(ctx context.Context, db store.Store, outputDir, runID string) (*string, interface{}, error) {
	path := filepath.Join(outputDir, ArtifactName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// No artifact produced: not an error, just no principal output.
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	doc := map[string]interface{}{
		"content": content,
		"run_id":  runID,
	}
	if utf8.Valid(content) {
		doc["content_decoded"] = string(content)
	}

	id, err := db.InsertOne(ctx, p.Collection, doc)
	if err != nil {
		return nil, nil, err
	}

	collection := p.Collection
	return &collection, id, nil
}
