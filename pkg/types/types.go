// Package types defines the core data structures shared across the
// workflow engine: the static interface descriptor of a tool class and
// the per-instance mapping descriptor binding its inputs. The step
// metadata record itself lives in pkg/store, which owns its persistence
// shape.
package types

import "fmt"

// ProviderKind discriminates between a static value and a database-backed
// dynamic lookup for one tool input.
type ProviderKind string

const (
	ProviderStatic  ProviderKind = "static"
	ProviderDynamic ProviderKind = "dynamic"
)

// InputSpec declares one formal input of a tool class: its name and
// whether a mapping must supply a provider for it.
type InputSpec struct {
	Name      string `yaml:"name"`
	Mandatory bool   `yaml:"mandatory"`
}

// UnmarshalYAML allows "mandatory: 0|1" as in the original interface
// files, in addition to plain booleans.
func (i *InputSpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Name      string      `yaml:"name"`
		Mandatory interface{} `yaml:"mandatory"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	i.Name = raw.Name
	switch v := raw.Mandatory.(type) {
	case nil:
		i.Mandatory = false
	case bool:
		i.Mandatory = v
	case int:
		i.Mandatory = v != 0
	default:
		return fmt.Errorf("input %q: mandatory must be 0, 1 or a boolean, got %v", raw.Name, v)
	}
	return nil
}

// ImageSpec names the build context and tag for a tool class's container
// image.
type ImageSpec struct {
	Context string `yaml:"context"`
	Tag     string `yaml:"tag"`
}

// InterfaceDescriptor is the static, per-tool-class declaration loaded
// once at construction time: its formal inputs, its command template,
// and its image build coordinates.
type InterfaceDescriptor struct {
	Inputs  []InputSpec `yaml:"inputs"`
	Command []string    `yaml:"command"`
	Image   ImageSpec   `yaml:"image"`
}

// Query is a dynamic provider's database lookup: an optional root node
// reference, the collection to query, an optional filter, and a
// single-field, dotted-path projection.
type Query struct {
	Root       string                 `yaml:"root,omitempty"`
	Collection string                 `yaml:"collection"`
	Filter     map[string]interface{} `yaml:"filter,omitempty"`
	Projection map[string]interface{} `yaml:"projection"`
}

// Provider is one entry of a mapping descriptor: either a static scalar
// value or a dynamic query against a previous node's output.
type Provider struct {
	Kind  ProviderKind `yaml:"type"`
	Value interface{}  `yaml:"value,omitempty"`
	Query *Query       `yaml:"query,omitempty"`
}

// MappingDescriptor is the per-instance declaration binding each tool
// input name to a Provider.
type MappingDescriptor map[string]Provider
