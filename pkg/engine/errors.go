package engine

import "fmt"

// InterfaceDescriptorError reports that an interface file could not be
// parsed or was structurally invalid.
type InterfaceDescriptorError struct {
	Cause error
}

func (e *InterfaceDescriptorError) Error() string {
	return fmt.Sprintf("interface descriptor error: %v", e.Cause)
}

func (e *InterfaceDescriptorError) Unwrap() error { return e.Cause }

// MappingDescriptorError reports that a mapping file could not be parsed
// or was structurally invalid.
type MappingDescriptorError struct {
	Cause error
}

func (e *MappingDescriptorError) Error() string {
	return fmt.Sprintf("mapping descriptor error: %v", e.Cause)
}

func (e *MappingDescriptorError) Unwrap() error { return e.Cause }

// NodeError is a generic node-level failure wrapping an underlying cause
// (result parsing, environment setup).
type NodeError struct {
	Node  string
	Class string
	Msg   string
	Cause error
}

func (e *NodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("node %s (%s) error: %s: %v", e.Node, e.Class, e.Msg, e.Cause)
	}
	return fmt.Sprintf("node %s (%s) error: %s", e.Node, e.Class, e.Msg)
}

func (e *NodeError) Unwrap() error { return e.Cause }

// StateError is a specialization of NodeError indicating a lifecycle
// phase was invoked outside its legal predecessor set: a programming
// error, not a runtime condition.
type StateError struct {
	Node  string
	Class string
	State string
	Task  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("node %s (%s) error: wrong state %s to %s", e.Node, e.Class, e.State, e.Task)
}

// AsNodeError returns the StateError expressed as a NodeError with the
// same node, class and message. errors.As does not perform this
// conversion: a StateError does not match a *NodeError target.
func (e *StateError) AsNodeError() *NodeError {
	return &NodeError{Node: e.Node, Class: e.Class, Msg: fmt.Sprintf("wrong state %s to %s", e.State, e.Task)}
}
