package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/skelet0wn-go/skelet0wn/pkg/command"
	"github.com/skelet0wn-go/skelet0wn/pkg/containerrt"
	"github.com/skelet0wn-go/skelet0wn/pkg/metrics"
	"github.com/skelet0wn-go/skelet0wn/pkg/resolver"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
	"github.com/skelet0wn-go/skelet0wn/pkg/types"
)

// State is the Tool Node lifecycle's explicit phase. The spec's Python
// original tracks this with an informal, nil-check-implied private
// attribute; here it is a real enum so illegal transitions fail loudly
// as a StateError instead of silently reading a stale field.
type State int

const (
	StateInit State = iota
	StatePrepared
	StateArgsFetched
	StateCommandBuilt
	StateContainerRan
	StateResultsStored
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StatePrepared:
		return "PREPARED"
	case StateArgsFetched:
		return "ARGS_FETCHED"
	case StateCommandBuilt:
		return "COMMAND_BUILT"
	case StateContainerRan:
		return "CONTAINER_RAN"
	case StateResultsStored:
		return "RESULTS_STORED"
	default:
		return "UNKNOWN"
	}
}

// ResultParser is implemented by each tool-specific wrapper: it reads
// whatever the container wrote to the node's output directory, upserts
// structured results into a domain collection, and reports the pointer
// that should go into the step-metadata record.
type ResultParser interface {
	// StoreResults parses outputDir's artifacts, writes domain
	// documents to db, and returns the collection and ID of the
	// principal output, or a nil collection if this run produced none.
	StoreResults(ctx context.Context, db store.Store, outputDir, runID string) (collection *string, id interface{}, err error)
}

// ToolNode wraps one external CLI tool: a static InterfaceDescriptor
// shared by every instance of the tool class, and a per-instance
// MappingDescriptor plus ResultParser.
type ToolNode struct {
	Identity

	Class     string
	Interface types.InterfaceDescriptor
	Mapping   types.MappingDescriptor
	Parser    ResultParser
	Runtime   containerrt.Runtime

	state       State
	containerID string
	values      map[string]interface{}
	argv        []string
	buildLog    string
	runLog      string
	runStatus   int64
}

// NewToolNode constructs a ToolNode in its initial state.
func NewToolNode(class string, iface types.InterfaceDescriptor, mapping types.MappingDescriptor, parser ResultParser, runtime containerrt.Runtime) *ToolNode {
	return &ToolNode{
		Class:     class,
		Interface: iface,
		Mapping:   mapping,
		Parser:    parser,
		Runtime:   runtime,
		state:     StateInit,
	}
}

func (n *ToolNode) PrepareEnvironment(_ context.Context, outputDir, sharedDir, name string) error {
	if err := n.Identity.Prepare(outputDir, sharedDir, name); err != nil {
		return err
	}
	n.state = StatePrepared
	return nil
}

func (n *ToolNode) requireState(want State, task string) error {
	if n.state != want {
		return &StateError{Node: n.Name, Class: n.Class, State: n.state.String(), Task: task}
	}
	return nil
}

// Run drives the Tool Node through its full state machine. On any
// failure it attempts a best-effort store_metadata so downstream
// resolvers observe the absence of an output pointer.
func (n *ToolNode) Run(ctx context.Context, db store.Store, runID string) error {
	start := time.Now()
	defer func() {
		metrics.NodeRunDuration.WithLabelValues(n.Class).Observe(time.Since(start).Seconds())
	}()

	if err := n.requireState(StatePrepared, "fetch arguments"); err != nil {
		return err
	}

	n.Log(zerolog.InfoLevel, 0, "resolving inputs")
	values, err := resolver.Resolve(ctx, n.Interface.Inputs, n.Mapping, db, n.Name, runID)
	if err != nil {
		n.storeFailureMetadata(ctx, db, runID)
		if _, ok := err.(*resolver.Unresolved); ok {
			return &StateError{Node: n.Name, Class: n.Class, State: n.state.String(), Task: "run with unresolvable optional input"}
		}
		return err
	}
	n.values = values
	n.state = StateArgsFetched

	n.Log(zerolog.InfoLevel, 0, "building command")
	argv, err := command.Build(n.Interface.Command, n.values)
	if err != nil {
		n.storeFailureMetadata(ctx, db, runID)
		return &NodeError{Node: n.Name, Class: n.Class, Msg: "failed to render command", Cause: err}
	}
	n.argv = argv
	n.state = StateCommandBuilt

	n.Log(zerolog.InfoLevel, 0, "building image")
	buildLog, err := n.Runtime.Build(ctx, n.Interface.Image.Context, n.Interface.Image.Tag)
	n.buildLog = buildLog
	if err != nil {
		n.storeFailureMetadata(ctx, db, runID)
		return err
	}

	if err := n.runContainer(ctx); err != nil {
		n.storeFailureMetadata(ctx, db, runID)
		return err
	}
	n.state = StateContainerRan
	metrics.ContainerExitCode.WithLabelValues(fmt.Sprintf("%d", n.runStatus)).Inc()

	n.Log(zerolog.InfoLevel, 0, "parsing results")
	outputCollection, outputID, err := n.Parser.StoreResults(ctx, db, n.OutputDir, runID)
	if err != nil {
		n.storeFailureMetadata(ctx, db, runID)
		return &NodeError{Node: n.Name, Class: n.Class, Msg: "result parsing failed", Cause: err}
	}

	if err := n.storeMetadata(ctx, db, runID, outputCollection, outputID); err != nil {
		return err
	}
	n.state = StateResultsStored

	metrics.NodeRunsTotal.WithLabelValues(n.Class, "success").Inc()
	return nil
}

func (n *ToolNode) runContainer(ctx context.Context) error {
	spec := containerrt.RunSpec{
		Name:      n.Name,
		Image:     n.Interface.Image.Tag,
		Argv:      n.argv,
		OutputDir: n.OutputDir,
		SharedDir: n.SharedDir,
	}

	containerID, err := n.Runtime.Create(ctx, spec)
	if err != nil {
		return err
	}
	n.containerID = containerID

	if err := n.Runtime.Start(ctx, containerID); err != nil {
		return err
	}

	n.Log(zerolog.InfoLevel, 0, "container started, streaming logs")
	runLog, logErr := n.Runtime.Logs(ctx, containerID)
	n.runLog = runLog

	exitCode, err := n.Runtime.Wait(ctx, containerID)
	if err != nil {
		n.cleanupContainer(ctx)
		return err
	}
	n.runStatus = exitCode

	n.cleanupContainer(ctx)

	if logErr != nil {
		n.Log(zerolog.WarnLevel, 1, fmt.Sprintf("log stream error: %v", logErr))
	}

	if !containerrt.Accepted(exitCode) {
		return &containerrt.ContainerRunError{Cause: fmt.Errorf("container exited with code %d", exitCode)}
	}
	if exitCode == 137 {
		n.Log(zerolog.WarnLevel, 1, "accepted early termination (exit 137)")
	}
	return nil
}

func (n *ToolNode) cleanupContainer(ctx context.Context) {
	if n.containerID == "" {
		return
	}
	if err := n.Runtime.Remove(ctx, n.containerID); err != nil {
		n.Log(zerolog.WarnLevel, 1, fmt.Sprintf("failed to remove container: %v", err))
	}
}

func (n *ToolNode) storeMetadata(ctx context.Context, db store.Store, runID string, outputCollection *string, outputID interface{}) error {
	err := db.StoreStep(ctx, store.StepInput{
		Name:             n.Name,
		Class:            n.Class,
		RunID:            runID,
		OutputCollection: outputCollection,
		OutputID:         outputID,
		Command:          n.argv,
		Docker: &store.DockerMetadata{
			BuildLog:  n.buildLog,
			RunLog:    n.runLog,
			RunStatus: fmt.Sprintf("%d", n.runStatus),
		},
	})
	if err != nil {
		return &NodeError{Node: n.Name, Class: n.Class, Msg: "failed to store step metadata", Cause: err}
	}
	return nil
}

// storeFailureMetadata makes a best-effort attempt to record that this
// node ran and failed, with no output pointer, so downstream resolvers
// see an incoherent/absent output rather than nothing at all. Errors
// are logged and swallowed: a failed failure-record must never mask the
// original error.
func (n *ToolNode) storeFailureMetadata(ctx context.Context, db store.Store, runID string) {
	metrics.NodeRunsTotal.WithLabelValues(n.Class, "failure").Inc()
	if err := db.StoreStep(ctx, store.StepInput{
		Name:  n.Name,
		Class: n.Class,
		RunID: runID,
	}); err != nil {
		n.Log(zerolog.ErrorLevel, 1, fmt.Sprintf("failed to store failure metadata: %v", err))
	}
}

// Interrupt forwards a stop signal to the running container, if any. It
// never blocks on the container actually exiting; Run's own Wait call
// observes the resulting exit code.
func (n *ToolNode) Interrupt(ctx context.Context) {
	if n.containerID == "" {
		return
	}
	if err := n.Runtime.Stop(ctx, n.containerID, 10*time.Second); err != nil {
		n.Log(zerolog.WarnLevel, 1, fmt.Sprintf("interrupt: failed to stop container: %v", err))
	}
}

var _ Node = (*ToolNode)(nil)
