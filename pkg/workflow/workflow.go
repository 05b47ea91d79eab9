// Package workflow loads a declarative YAML workflow document into a
// runnable engine.Node tree. This is the "CLI entry point of a sample
// program" category spec §1 marks out of scope for the engine's own
// responsibilities: it performs no tool-specific parsing and contributes
// no new engine semantics, it only turns a discriminated-union document
// into the Node graph the engine already knows how to run.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skelet0wn-go/skelet0wn/pkg/containerrt"
	"github.com/skelet0wn-go/skelet0wn/pkg/engine"
	"github.com/skelet0wn-go/skelet0wn/pkg/tools/generic"
	"github.com/skelet0wn-go/skelet0wn/pkg/types"
)

// Kind discriminates a workflow document node's concrete type, mirroring
// the teacher's WarrenResource.Kind discriminated-union pattern.
type Kind string

const (
	KindSequence    Kind = "sequence"
	KindParallel    Kind = "parallel"
	KindTransformer Kind = "transformer"
	KindUploadFile  Kind = "uploadFile"
	KindShareFile   Kind = "shareFile"
	KindTool        Kind = "tool"
)

// Document is one node of the declarative tree. Only the fields relevant
// to Kind are populated; the rest are ignored.
type Document struct {
	Kind Kind `yaml:"kind"`

	// sequence
	Children      []Document `yaml:"children,omitempty"`
	StopOnFailure *bool      `yaml:"stopOnFailure,omitempty"`
	StopOnSuccess *bool      `yaml:"stopOnSuccess,omitempty"`

	// parallel
	Front *Document `yaml:"front,omitempty"`
	Back  *Document `yaml:"back,omitempty"`

	// transformer
	Collection string                 `yaml:"collection,omitempty"`
	Filter     map[string]interface{} `yaml:"filter,omitempty"`
	Projection map[string]interface{} `yaml:"projection,omitempty"`
	Transform  string                 `yaml:"transform,omitempty"`

	// uploadFile / shareFile
	HostPath    string `yaml:"hostPath,omitempty"`
	LogicalName string `yaml:"logicalName,omitempty"`

	// tool
	Class         string                  `yaml:"class,omitempty"`
	InterfaceFile string                  `yaml:"interfaceFile,omitempty"`
	MappingFile   string                  `yaml:"mappingFile,omitempty"`
	Mapping       types.MappingDescriptor `yaml:"mapping,omitempty"`
}

// TransformRegistry maps a transform name referenced in a "transformer"
// document to the pure function it names. Callers of Load register their
// own transforms (e.g. "joinIPv4" for scenario 4 in spec §8); the engine
// itself has no built-in ones since a Transform is inherently tool- or
// workflow-specific.
type TransformRegistry map[string]engine.Transform

// ParserRegistry maps a tool class name to the ResultParser it should be
// built with, and the interface descriptor it is declared against when
// a document only names a class instead of an inline interfaceFile.
type ParserRegistry map[string]ToolFactory

// ToolFactory produces the static pieces of one tool class: its
// interface descriptor and result parser. Mapping descriptors stay
// per-instance and come from the document itself.
type ToolFactory struct {
	Interface types.InterfaceDescriptor
	Parser    engine.ResultParser
}

// Load parses a YAML workflow document and builds the corresponding
// engine.Node tree, resolving "tool" documents against factories and
// "transformer" documents against transforms.
func Load(data []byte, factories ParserRegistry, transforms TransformRegistry, runtime containerrt.Runtime) (engine.Node, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workflow document: %w", err)
	}
	return build(&doc, factories, transforms, runtime)
}

// LoadFile reads and loads a workflow document from a host path.
func LoadFile(path string, factories ParserRegistry, transforms TransformRegistry, runtime containerrt.Runtime) (engine.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file %s: %w", path, err)
	}
	return Load(data, factories, transforms, runtime)
}

func build(doc *Document, factories ParserRegistry, transforms TransformRegistry, runtime containerrt.Runtime) (engine.Node, error) {
	switch doc.Kind {
	case KindSequence:
		children := make([]engine.Node, 0, len(doc.Children))
		for i, childDoc := range doc.Children {
			child, err := build(&childDoc, factories, transforms, runtime)
			if err != nil {
				return nil, fmt.Errorf("building sequence child %d: %w", i, err)
			}
			children = append(children, child)
		}
		seq := engine.NewSequence(children...)
		if doc.StopOnFailure != nil {
			seq.StopOnFailure = *doc.StopOnFailure
		}
		if doc.StopOnSuccess != nil {
			seq.StopOnSuccess = *doc.StopOnSuccess
		}
		return seq, nil

	case KindParallel:
		if doc.Front == nil || doc.Back == nil {
			return nil, fmt.Errorf("parallel document requires both front and back")
		}
		front, err := build(doc.Front, factories, transforms, runtime)
		if err != nil {
			return nil, fmt.Errorf("building parallel front: %w", err)
		}
		back, err := build(doc.Back, factories, transforms, runtime)
		if err != nil {
			return nil, fmt.Errorf("building parallel back: %w", err)
		}
		return engine.NewParallel(front, back), nil

	case KindTransformer:
		transform, ok := transforms[doc.Transform]
		if !ok {
			return nil, fmt.Errorf("unknown transform %q", doc.Transform)
		}
		return engine.NewTransformer(doc.Collection, doc.Filter, doc.Projection, transform), nil

	case KindUploadFile:
		return engine.NewUploadFile(doc.HostPath, doc.LogicalName), nil

	case KindShareFile:
		return engine.NewShareFile(doc.LogicalName), nil

	case KindTool:
		factory, ok := factories[doc.Class]
		if !ok {
			if doc.InterfaceFile == "" {
				return nil, fmt.Errorf("unknown tool class %q and no interfaceFile given", doc.Class)
			}
			iface, err := loadInterfaceFile(doc.InterfaceFile)
			if err != nil {
				return nil, fmt.Errorf("loading interface file for %q: %w", doc.Class, err)
			}
			factory = ToolFactory{Interface: iface, Parser: DefaultGenericParser(doc.Class)}
		}

		mapping := doc.Mapping
		if mapping == nil && doc.MappingFile != "" {
			loaded, err := loadMappingFile(doc.MappingFile)
			if err != nil {
				return nil, fmt.Errorf("loading mapping file for %q: %w", doc.Class, err)
			}
			mapping = loaded
		}

		return engine.NewToolNode(doc.Class, factory.Interface, mapping, factory.Parser, runtime), nil

	default:
		return nil, fmt.Errorf("unknown workflow node kind %q", doc.Kind)
	}
}

// DefaultGenericParser wires the reference generic.Parser for a tool
// class that has no dedicated parser of its own, writing its principal
// output to collection.
func DefaultGenericParser(collection string) engine.ResultParser {
	return generic.NewParser(collection)
}

// loadInterfaceFile parses a tool class's interface.yml per the §6
// contract: inputs, command template, image build coordinates.
func loadInterfaceFile(path string) (types.InterfaceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.InterfaceDescriptor{}, &engine.InterfaceDescriptorError{Cause: err}
	}
	var iface types.InterfaceDescriptor
	if err := yaml.Unmarshal(data, &iface); err != nil {
		return types.InterfaceDescriptor{}, &engine.InterfaceDescriptorError{Cause: err}
	}
	return iface, nil
}

// loadMappingFile parses a tool instance's mapping.yml per the §6
// contract: one provider (static or dynamic) per input name.
func loadMappingFile(path string) (types.MappingDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &engine.MappingDescriptorError{Cause: err}
	}
	var mapping types.MappingDescriptor
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, &engine.MappingDescriptorError{Cause: err}
	}
	return mapping, nil
}
