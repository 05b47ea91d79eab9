// Package resolver implements the dynamic parameter resolver: binding a
// tool node's formal inputs to either a static mapping value or a value
// queried from a prior node's stored output, through the step-metadata
// index.
package resolver

import (
	"context"
	"fmt"

	"github.com/skelet0wn-go/skelet0wn/pkg/metrics"
	"github.com/skelet0wn-go/skelet0wn/pkg/naming"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
	"github.com/skelet0wn-go/skelet0wn/pkg/types"
)

// MappingError reports that the resolver failed to bind one parameter:
// missing mandatory provider, bad query shape, incoherent collection, or
// no previous sibling. Always fatal for the node that triggered it.
type MappingError struct {
	Argument string
	Msg      string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping error on %s: %s", e.Argument, e.Msg)
}

// Unresolved reports that an optional dynamic input had no bindable
// value: the query's collection had no matching document, or the
// projection path was absent from the matched one. It is not a
// MappingError; Resolve returns it as its error result, alongside a nil
// value map, to signal the caller
// ("run the tool anyway with no value for this input" is never legal —
// see engine/tool.go, which treats it as a StateError after recording
// metadata).
type Unresolved struct {
	Input string
}

func (u *Unresolved) Error() string {
	return fmt.Sprintf("input %q has no resolvable value", u.Input)
}

// Resolve binds every input declared in inputs to a value, using mapping
// to find each one's provider and db to satisfy dynamic queries. name
// and runID identify the node doing the resolving, for "previous" and
// run-scoped lookups.
//
// On success it returns the full value map. If a mandatory input cannot
// be bound, or a provider is malformed, it returns a *MappingError.
// If an optional input's dynamic query comes up empty, it returns
// (nil, *Unresolved) with no MappingError — the spec's
// "unresolvable-but-not-erroneous" case.
func Resolve(ctx context.Context, inputs []types.InputSpec, mapping types.MappingDescriptor, db store.Store, name, runID string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(inputs))

	for _, in := range inputs {
		provider, present := mapping[in.Name]
		if !present {
			if in.Mandatory {
				return nil, &MappingError{Argument: in.Name, Msg: "mandatory input missing from mapping"}
			}
			// No provider declared for an optional input: bind it to
			// the empty string so command rendering drops the
			// argument rather than rendering a missing-key sentinel.
			values[in.Name] = ""
			continue
		}

		value, unresolved, err := resolveOne(ctx, in, provider, db, name, runID)
		if err != nil {
			return nil, err
		}
		if unresolved {
			metrics.ResolverMisses.WithLabelValues(in.Name).Inc()
			if in.Mandatory {
				return nil, &MappingError{Argument: in.Name, Msg: "mandatory dynamic input has no matching value"}
			}
			return nil, &Unresolved{Input: in.Name}
		}
		values[in.Name] = value
	}

	return values, nil
}

func resolveOne(ctx context.Context, in types.InputSpec, provider types.Provider, db store.Store, name, runID string) (value interface{}, unresolved bool, err error) {
	switch provider.Kind {
	case types.ProviderStatic:
		if provider.Value == nil {
			return nil, false, &MappingError{Argument: in.Name, Msg: "static provider has no value"}
		}
		return provider.Value, false, nil

	case types.ProviderDynamic:
		return resolveDynamic(ctx, in, provider.Query, db, name, runID)

	case "":
		return nil, false, &MappingError{Argument: in.Name, Msg: "provider kind missing"}

	default:
		return nil, false, &MappingError{Argument: in.Name, Msg: fmt.Sprintf("unrecognized provider kind %q", provider.Kind)}
	}
}

func resolveDynamic(ctx context.Context, in types.InputSpec, query *types.Query, db store.Store, name, runID string) (interface{}, bool, error) {
	if query == nil {
		return nil, false, &MappingError{Argument: in.Name, Msg: "dynamic provider has no query"}
	}
	if query.Collection == "" {
		return nil, false, &MappingError{Argument: in.Name, Msg: "query is missing a collection"}
	}
	if len(query.Projection) != 1 {
		return nil, false, &MappingError{Argument: in.Name, Msg: "projection must name exactly one field"}
	}

	filter := cloneFilter(query.Filter)

	if query.Root != "" {
		sourceName, err := resolveRoot(query.Root, name)
		if err != nil {
			return nil, false, &MappingError{Argument: in.Name, Msg: err.Error()}
		}

		step, found, err := db.FindLatestStep(ctx, sourceName, runID)
		if err != nil {
			return nil, false, fmt.Errorf("resolving %s: %w", in.Name, err)
		}
		if !found {
			return nil, false, &MappingError{Argument: in.Name, Msg: fmt.Sprintf("no step output found for %q", sourceName)}
		}
		if step.OutputCollection == nil || *step.OutputCollection != query.Collection {
			return nil, false, &MappingError{Argument: in.Name, Msg: fmt.Sprintf("step %q produced collection %v, mapping expects %q", sourceName, step.OutputCollection, query.Collection)}
		}
		filter["_id"] = step.OutputID
	}

	doc, found, err := db.FindOne(ctx, query.Collection, filter, query.Projection)
	if err != nil {
		return nil, false, fmt.Errorf("resolving %s: %w", in.Name, err)
	}
	if !found {
		return nil, true, nil
	}

	var projectionPath string
	for k := range query.Projection {
		projectionPath = k
	}
	value, ok := descend(doc, projectionPath)
	if !ok {
		return nil, true, nil
	}
	return value, false, nil
}

// resolveRoot turns a query's "previous"/absolute-name/absent root
// reference into a concrete node name to look up in the step index.
func resolveRoot(root, currentName string) (string, error) {
	if root == "previous" {
		prev, ok := naming.Previous(currentName)
		if !ok {
			return "", fmt.Errorf("node %q has no previous sibling", currentName)
		}
		return prev, nil
	}
	return root, nil
}

func cloneFilter(filter map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	return out
}

// descend walks a dotted path through a decoded document, returning
// (nil, false) the instant any intermediate segment is absent or not a
// nested map — the "unresolvable, not an error" case.
func descend(doc map[string]interface{}, dottedPath string) (interface{}, bool) {
	var cur interface{} = doc
	start := 0
	for i := 0; i <= len(dottedPath); i++ {
		if i == len(dottedPath) || dottedPath[i] == '.' {
			seg := dottedPath[start:i]
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			cur, ok = m[seg]
			if !ok {
				return nil, false
			}
			start = i + 1
		}
	}
	return cur, true
}
