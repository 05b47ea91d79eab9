package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelet0wn-go/skelet0wn/pkg/store"
	"github.com/skelet0wn-go/skelet0wn/pkg/types"
)

func TestResolve_StaticMandatory(t *testing.T) {
	db := store.NewMemory()
	inputs := []types.InputSpec{{Name: "target", Mandatory: true}}
	mapping := types.MappingDescriptor{
		"target": types.Provider{Kind: types.ProviderStatic, Value: "10.0.0.1"},
	}

	values, err := Resolve(context.Background(), inputs, mapping, db, "n0", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", values["target"])
}

func TestResolve_MandatoryMissingFromMapping(t *testing.T) {
	db := store.NewMemory()
	inputs := []types.InputSpec{{Name: "target", Mandatory: true}}

	_, err := Resolve(context.Background(), inputs, types.MappingDescriptor{}, db, "n0", "run-1")
	var mapErr *MappingError
	assert.ErrorAs(t, err, &mapErr)
}

func TestResolve_OptionalMissingFromMapping(t *testing.T) {
	db := store.NewMemory()
	inputs := []types.InputSpec{{Name: "rate", Mandatory: false}}

	values, err := Resolve(context.Background(), inputs, types.MappingDescriptor{}, db, "n0", "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"rate": ""}, values)
}

func TestResolve_DynamicPrevious(t *testing.T) {
	db := store.NewMemory()
	collection := "machines"
	id, err := db.InsertOne(context.Background(), "machines", map[string]interface{}{
		"IP": map[string]interface{}{"ipv4": "10.0.0.5"},
	})
	require.NoError(t, err)
	require.NoError(t, db.StoreStep(context.Background(), store.StepInput{
		Name: "n0.0", Class: "nmap", RunID: "run-1",
		OutputCollection: &collection, OutputID: id,
	}))

	inputs := []types.InputSpec{{Name: "target", Mandatory: true}}
	mapping := types.MappingDescriptor{
		"target": types.Provider{Kind: types.ProviderDynamic, Query: &types.Query{
			Root:       "previous",
			Collection: "machines",
			Projection: map[string]interface{}{"IP.ipv4": 1},
		}},
	}

	values, err := Resolve(context.Background(), inputs, mapping, db, "n0.1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", values["target"])
}

func TestResolve_PreviousOnSlotZeroFails(t *testing.T) {
	db := store.NewMemory()
	inputs := []types.InputSpec{{Name: "target", Mandatory: true}}
	mapping := types.MappingDescriptor{
		"target": types.Provider{Kind: types.ProviderDynamic, Query: &types.Query{
			Root:       "previous",
			Collection: "machines",
			Projection: map[string]interface{}{"IP.ipv4": 1},
		}},
	}

	_, err := Resolve(context.Background(), inputs, mapping, db, "n0.0", "run-1")
	var mapErr *MappingError
	assert.ErrorAs(t, err, &mapErr)
}

func TestResolve_IncoherentCollectionFails(t *testing.T) {
	db := store.NewMemory()
	collection := "machines"
	id, err := db.InsertOne(context.Background(), "machines", map[string]interface{}{"x": 1})
	require.NoError(t, err)
	require.NoError(t, db.StoreStep(context.Background(), store.StepInput{
		Name: "n0.0", Class: "nmap", RunID: "run-1",
		OutputCollection: &collection, OutputID: id,
	}))

	inputs := []types.InputSpec{{Name: "target", Mandatory: true}}
	mapping := types.MappingDescriptor{
		"target": types.Provider{Kind: types.ProviderDynamic, Query: &types.Query{
			Root:       "previous",
			Collection: "temp",
			Projection: map[string]interface{}{"result": 1},
		}},
	}

	_, err = Resolve(context.Background(), inputs, mapping, db, "n0.1", "run-1")
	var mapErr *MappingError
	assert.ErrorAs(t, err, &mapErr)
}

func TestResolve_OptionalDynamicMissReturnsUnresolved(t *testing.T) {
	db := store.NewMemory()
	inputs := []types.InputSpec{{Name: "rate", Mandatory: false}}
	mapping := types.MappingDescriptor{
		"rate": types.Provider{Kind: types.ProviderDynamic, Query: &types.Query{
			Collection: "config",
			Filter:     map[string]interface{}{"key": "missing"},
			Projection: map[string]interface{}{"value": 1},
		}},
	}

	_, err := Resolve(context.Background(), inputs, mapping, db, "n0", "run-1")
	var unresolved *Unresolved
	assert.ErrorAs(t, err, &unresolved)
}

func TestResolve_MandatoryDynamicMissIsMappingError(t *testing.T) {
	db := store.NewMemory()
	inputs := []types.InputSpec{{Name: "rate", Mandatory: true}}
	mapping := types.MappingDescriptor{
		"rate": types.Provider{Kind: types.ProviderDynamic, Query: &types.Query{
			Collection: "config",
			Filter:     map[string]interface{}{"key": "missing"},
			Projection: map[string]interface{}{"value": 1},
		}},
	}

	_, err := Resolve(context.Background(), inputs, mapping, db, "n0", "run-1")
	var mapErr *MappingError
	assert.ErrorAs(t, err, &mapErr)
}

func TestResolve_ProjectionWithTwoFieldsIsMappingError(t *testing.T) {
	db := store.NewMemory()
	inputs := []types.InputSpec{{Name: "target", Mandatory: true}}
	mapping := types.MappingDescriptor{
		"target": types.Provider{Kind: types.ProviderDynamic, Query: &types.Query{
			Collection: "machines",
			Projection: map[string]interface{}{"a": 1, "b": 1},
		}},
	}

	_, err := Resolve(context.Background(), inputs, mapping, db, "n0", "run-1")
	var mapErr *MappingError
	assert.ErrorAs(t, err, &mapErr)
}

func TestResolve_AbsentRootQueriesDirectly(t *testing.T) {
	db := store.NewMemory()
	_, err := db.InsertOne(context.Background(), "config", map[string]interface{}{
		"key": "wordlist", "value": "/usr/share/wordlists/rockyou.txt",
	})
	require.NoError(t, err)

	inputs := []types.InputSpec{{Name: "wordlist", Mandatory: true}}
	mapping := types.MappingDescriptor{
		"wordlist": types.Provider{Kind: types.ProviderDynamic, Query: &types.Query{
			Collection: "config",
			Filter:     map[string]interface{}{"key": "wordlist"},
			Projection: map[string]interface{}{"value": 1},
		}},
	}

	values, err := Resolve(context.Background(), inputs, mapping, db, "n0", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "/usr/share/wordlists/rockyou.txt", values["wordlist"])
}
