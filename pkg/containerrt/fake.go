package containerrt

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeRuntime is an in-process Runtime double for engine tests: no
// daemon, no tar streams, just a scripted exit code per container name
// and a record of what was invoked.
type FakeRuntime struct {
	mu sync.Mutex

	// ExitCodes maps a RunSpec.Name to the exit code Wait should report.
	// Unlisted names report 0.
	ExitCodes map[string]int64

	// Delay, if set, is how long Wait blocks before returning, letting
	// tests exercise Stop racing Wait.
	Delay map[string]time.Duration

	seq       int
	stopped   map[string]bool
	specs     map[string]RunSpec
	BuildLogs []string

	// History records every RunSpec passed to Create, in creation order,
	// surviving past Remove so tests can assert on a finished run's
	// rendered argv.
	History []RunSpec
}

// NewFakeRuntime returns an empty FakeRuntime.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		ExitCodes: map[string]int64{},
		Delay:     map[string]time.Duration{},
		stopped:   map[string]bool{},
		specs:     map[string]RunSpec{},
	}
}

func (f *FakeRuntime) Build(_ context.Context, contextDir, tag string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log := fmt.Sprintf("building %s from %s", tag, contextDir)
	f.BuildLogs = append(f.BuildLogs, log)
	return log, nil
}

func (f *FakeRuntime) Create(_ context.Context, spec RunSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("fake-container-%d", f.seq)
	f.specs[id] = spec
	f.History = append(f.History, spec)
	return id, nil
}

func (f *FakeRuntime) Start(_ context.Context, _ string) error {
	return nil
}

func (f *FakeRuntime) Logs(_ context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec := f.specs[containerID]
	return fmt.Sprintf("ran %v in %s", spec.Argv, containerID), nil
}

func (f *FakeRuntime) Wait(ctx context.Context, containerID string) (int64, error) {
	f.mu.Lock()
	spec := f.specs[containerID]
	delay := f.Delay[spec.Name]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped[containerID] {
		return 137, nil
	}
	code := f.ExitCodes[spec.Name]
	return code, nil
}

func (f *FakeRuntime) Stop(_ context.Context, containerID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped[containerID] = true
	return nil
}

func (f *FakeRuntime) Remove(_ context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.specs, containerID)
	return nil
}

// SpecFor returns the RunSpec a prior Create call recorded for
// containerID, for test assertions on rendered argv and mounts.
func (f *FakeRuntime) SpecFor(containerID string) (RunSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec, ok := f.specs[containerID]
	return spec, ok
}

// SpecForName returns the most recently recorded RunSpec whose Name
// matches, surviving container removal unlike SpecFor.
func (f *FakeRuntime) SpecForName(name string) (RunSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.History) - 1; i >= 0; i-- {
		if f.History[i].Name == name {
			return f.History[i], true
		}
	}
	return RunSpec{}, false
}

var _ Runtime = (*FakeRuntime)(nil)
var _ Runtime = (*DockerRuntime)(nil)
