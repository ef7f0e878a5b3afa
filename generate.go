package mural

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Request is one generation call to the backend collaborator.
type Request struct {
	// Prompt is the user's text request.
	Prompt string
	// Reference is the optional reference image, raw bytes.
	Reference []byte
	// Style is the per-slot style modifier fragment.
	Style string
}

// Result is the outcome of a generation call: either image bytes or a
// failure reason. A transport-level error from the Generator is treated the
// same as a Failure result.
type Result struct {
	Image   []byte
	Failure string
}

// Failed reports whether the result carries no usable image.
func (r Result) Failed() bool {
	return len(r.Image) == 0
}

// Generator is the opaque image-generation backend. Implementations must
// tolerate concurrent invocation.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (Result, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// BatchStatus is the generation status shared across a whole batch.
type BatchStatus uint8

const (
	StatusIdle BatchStatus = iota
	StatusGenerating
	// StatusSuccess means every request in the batch has settled. A batch
	// where all slots failed still ends here; failure shows up only as the
	// absence of resulting nodes.
	StatusSuccess
)

// String returns a human-readable status name.
func (s BatchStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusGenerating:
		return "generating"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Orchestrator turns one submitted request into a placeholder batch, fires
// the concurrent backend calls, and reconciles their independent results
// into the board. Multiple batches may overlap; there is no submission lock.
type Orchestrator struct {
	board *Board
	gen   Generator

	// WindowWidth feeds the default spawn anchor on an empty board.
	WindowWidth float64

	mu       sync.Mutex
	status   BatchStatus
	inFlight int

	batchSeq atomic.Int64
	rng      *rand.Rand
}

// NewOrchestrator wires an orchestrator to a board and a backend.
func NewOrchestrator(board *Board, gen Generator, windowWidth float64) *Orchestrator {
	return &Orchestrator{
		board:       board,
		gen:         gen,
		WindowWidth: windowWidth,
	}
}

// SetRand injects a deterministic random source for placement jitter.
func (o *Orchestrator) SetRand(rng *rand.Rand) {
	o.rng = rng
}

// Status returns the current batch status. While any batch is unsettled the
// status is Generating.
func (o *Orchestrator) Status() BatchStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Submit fans one request out into BatchSize concurrent generations.
//
// If upload is non-nil it is decoded and inserted immediately as a regular,
// non-loading node; that node becomes the batch's parent and anchor. A
// malformed upload is logged and skipped, and anchoring falls through to the
// normal priority policy.
//
// The placeholders are created synchronously before Submit returns, so the
// caller sees the full batch at once; each one then resolves or disappears
// independently. The returned ids are the placeholder ids in slot order.
//
// ctx should be scoped to the owning canvas session: switching canvases
// cancels it, abandoning results that no longer have a home.
func (o *Orchestrator) Submit(ctx context.Context, prompt string, upload []byte) []string {
	var refBytes []byte
	var refID string
	now := time.Now()

	if upload != nil {
		url, err := DecodeUpload(upload)
		if err != nil {
			log.Printf("mural: reference upload rejected: %v", err)
		} else {
			refBytes = upload
			anchor, _ := ResolveSource(o.board, "", o.WindowWidth)
			refID = NewNodeID()
			o.board.Add(ImageNode{
				ID:        refID,
				URL:       url,
				Prompt:    prompt,
				Timestamp: now,
				X:         anchor.X,
				Y:         anchor.Y,
				Scale:     1,
			})
		}
	}

	anchor, sourceID := ResolveSource(o.board, refID, o.WindowWidth)
	positions := SpawnPositions(BatchSize, anchor, o.rng)

	// Batch stamp: wall clock plus a monotonic counter, so two submissions
	// in the same millisecond cannot collide.
	stamp := fmt.Sprintf("%d-%d", now.UnixMilli(), o.batchSeq.Add(1))

	ids := make([]string, BatchSize)
	for i := 0; i < BatchSize; i++ {
		ids[i] = fmt.Sprintf("%s-%d", stamp, i)
		o.board.Add(ImageNode{
			ID:        ids[i],
			Prompt:    prompt,
			ParentID:  sourceID,
			Timestamp: now,
			IsLoading: true,
			X:         positions[i].X,
			Y:         positions[i].Y,
			Rotation:  jitter(o.rng, RotationJitter),
			Scale:     1,
		})
	}

	o.mu.Lock()
	o.status = StatusGenerating
	o.inFlight += BatchSize
	o.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < BatchSize; i++ {
		slot := i
		g.Go(func() error {
			o.resolve(ctx, ids[slot], Request{
				Prompt:    prompt,
				Reference: refBytes,
				Style:     StyleModifier(slot),
			})
			return nil
		})
	}
	go func() {
		// Workers never return errors; Wait is purely the fan-in point.
		_ = g.Wait()
		o.mu.Lock()
		o.inFlight -= BatchSize
		if o.inFlight == 0 {
			o.status = StatusSuccess
		}
		o.mu.Unlock()
	}()

	return ids
}

// resolve runs one slot's backend call and reconciles the outcome. On
// success the placeholder is updated in place, keeping its id and position
// so it doesn't visually jump; on any failure it is removed outright rather
// than left in an error state.
func (o *Orchestrator) resolve(ctx context.Context, id string, req Request) {
	res, err := o.gen.Generate(ctx, req)
	if err != nil || res.Failed() {
		if err != nil {
			log.Printf("mural: generation failed for %s: %v", id, err)
		} else {
			log.Printf("mural: generation failed for %s: %s", id, res.Failure)
		}
		o.board.Delete(id)
		return
	}
	url := DataURL(res.Image)
	loading := false
	o.board.Update(id, Patch{URL: &url, IsLoading: &loading})
}
