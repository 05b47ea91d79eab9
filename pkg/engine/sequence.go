package engine

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/skelet0wn-go/skelet0wn/pkg/metrics"
	"github.com/skelet0wn-go/skelet0wn/pkg/naming"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

// Sequence runs its children left to right, honoring stop-on-failure and
// stop-on-success policies. Its children occupy numeric slots, named
// "<name>.0", "<name>.1", ..., so a child at slot k+1 can reference
// slot k via the resolver's "previous" root.
type Sequence struct {
	Identity

	Children      []Node
	StopOnFailure bool
	StopOnSuccess bool
}

// NewSequence constructs a Sequence. StopOnFailure defaults to true and
// StopOnSuccess to false, matching spec §4.4; callers flip the fields
// directly after construction to override either default.
func NewSequence(children ...Node) *Sequence {
	return &Sequence{Children: children, StopOnFailure: true, StopOnSuccess: false}
}

func (s *Sequence) PrepareEnvironment(ctx context.Context, outputDir, sharedDir, name string) error {
	if err := s.Identity.Prepare(outputDir, sharedDir, name); err != nil {
		return err
	}
	for i, child := range s.Children {
		childName := naming.Child(name, strconv.Itoa(i))
		if err := child.PrepareEnvironment(ctx, outputDir, sharedDir, childName); err != nil {
			return err
		}
	}
	return nil
}

// Run iterates children in order. A failing child either propagates
// (StopOnFailure) or is logged and skipped; a succeeding child either
// ends the iteration (StopOnSuccess) or the loop continues. Unless a
// failure propagated, the Sequence then stores its own metadata and
// returns success, even when no child succeeded.
func (s *Sequence) Run(ctx context.Context, db store.Store, runID string) error {
	for i, child := range s.Children {
		if err := child.Run(ctx, db, runID); err != nil {
			s.Log(zerolog.WarnLevel, 1, "child "+strconv.Itoa(i)+" failed: "+err.Error())
			if s.StopOnFailure {
				metrics.NodeRunsTotal.WithLabelValues("sequence", "failure").Inc()
				return &NodeError{Node: s.Name, Class: "sequence", Msg: "child " + strconv.Itoa(i) + " failed", Cause: err}
			}
			continue
		}
		if s.StopOnSuccess {
			break
		}
	}

	if err := StoreMetadata(ctx, db, &s.Identity, "sequence", runID, nil, nil, nil); err != nil {
		return err
	}
	metrics.NodeRunsTotal.WithLabelValues("sequence", "success").Inc()
	return nil
}

// Interrupt fans out to every child, swallowing per-child state: a
// combinator's interrupt is best-effort by contract.
func (s *Sequence) Interrupt(ctx context.Context) {
	for _, child := range s.Children {
		child.Interrupt(ctx)
	}
}

var _ Node = (*Sequence)(nil)
