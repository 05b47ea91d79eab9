package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/skelet0wn-go/skelet0wn/pkg/metrics"
	"github.com/skelet0wn-go/skelet0wn/pkg/naming"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

// Parallel runs a foreground/background pair: Back starts first on its
// own goroutine, Front runs inline, and once Front finishes Back is
// interrupted and joined before Run returns. Front's and Back's slots
// are the non-numeric "f"/"b", so neither is a valid "previous" target
// (naming.Previous never matches a non-integer terminal component).
type Parallel struct {
	Identity

	Front Node
	Back  Node
}

// NewParallel constructs a Parallel combinator.
func NewParallel(front, back Node) *Parallel {
	return &Parallel{Front: front, Back: back}
}

func (p *Parallel) PrepareEnvironment(ctx context.Context, outputDir, sharedDir, name string) error {
	if err := p.Identity.Prepare(outputDir, sharedDir, name); err != nil {
		return err
	}
	if err := p.Front.PrepareEnvironment(ctx, outputDir, sharedDir, naming.Child(name, "f")); err != nil {
		return err
	}
	return p.Back.PrepareEnvironment(ctx, outputDir, sharedDir, naming.Child(name, "b"))
}

// Run starts Back on a goroutine, runs Front inline, interrupts Back
// once Front completes, and joins Back's goroutine before returning.
// Front's failure propagates; Back's never does — it is only ever
// logged at warning level, matching spec §4.5/§7.
func (p *Parallel) Run(ctx context.Context, db store.Store, runID string) error {
	done := make(chan error, 1)
	go func() {
		done <- p.Back.Run(ctx, db, runID)
	}()

	frontErr := p.Front.Run(ctx, db, runID)

	p.Back.Interrupt(ctx)
	if backErr := <-done; backErr != nil {
		p.Log(zerolog.WarnLevel, 1, "background child failed: "+backErr.Error())
	}

	if frontErr != nil {
		metrics.NodeRunsTotal.WithLabelValues("parallel", "failure").Inc()
		return &NodeError{Node: p.Name, Class: "parallel", Msg: "foreground child failed", Cause: frontErr}
	}

	if err := StoreMetadata(ctx, db, &p.Identity, "parallel", runID, nil, nil, nil); err != nil {
		return err
	}
	metrics.NodeRunsTotal.WithLabelValues("parallel", "success").Inc()
	return nil
}

// Interrupt fans out to both children.
func (p *Parallel) Interrupt(ctx context.Context) {
	p.Front.Interrupt(ctx)
	p.Back.Interrupt(ctx)
}

var _ Node = (*Parallel)(nil)
