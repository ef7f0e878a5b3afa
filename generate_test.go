package mural

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"testing"
	"time"
)

// waitStatus polls the orchestrator until it reaches want or the deadline
// passes. Resolution runs on worker goroutines, so tests observe it this way.
func waitStatus(t *testing.T, o *Orchestrator, want BatchStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if o.Status() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status = %v, want %v", o.Status(), want)
}

func okGenerator() Generator {
	return GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{Image: []byte("img:" + req.Style)}, nil
	})
}

func TestSubmitCreatesPlaceholderBatch(t *testing.T) {
	b := NewBoard()
	release := make(chan struct{})
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		<-release
		return Result{Image: []byte("ok")}, nil
	})
	o := NewOrchestrator(b, gen, 1280)
	o.SetRand(rand.New(rand.NewSource(1)))

	ids := o.Submit(context.Background(), "a red fox", nil)

	if len(ids) != BatchSize {
		t.Fatalf("got %d ids, want %d", len(ids), BatchSize)
	}
	if b.Len() != BatchSize {
		t.Fatalf("board has %d nodes, want %d placeholders before any result", b.Len(), BatchSize)
	}
	if o.Status() != StatusGenerating {
		t.Errorf("status = %v, want generating", o.Status())
	}
	for i, id := range ids {
		n, ok := b.Get(id)
		if !ok {
			t.Fatalf("placeholder %d missing", i)
		}
		if !n.IsLoading || n.URL != "" {
			t.Errorf("placeholder %d: IsLoading=%v URL=%q, want loading and empty", i, n.IsLoading, n.URL)
		}
		if n.Prompt != "a red fox" {
			t.Errorf("placeholder %d prompt = %q", i, n.Prompt)
		}
		if n.Rotation < -RotationJitter || n.Rotation > RotationJitter {
			t.Errorf("placeholder %d rotation = %f, want within ±%f", i, n.Rotation, RotationJitter)
		}
	}
	// Slot ids share the batch stamp and are ordered.
	stamp := ids[0][:strings.LastIndex(ids[0], "-")]
	for i, id := range ids {
		if !strings.HasPrefix(id, stamp) {
			t.Errorf("id %q does not share batch stamp %q", id, stamp)
		}
		if !strings.HasSuffix(id, "-"+string(rune('0'+i))) {
			t.Errorf("id %q does not end in slot %d", id, i)
		}
	}

	close(release)
	waitStatus(t, o, StatusSuccess)
}

func TestPartialFailureKeepsOnlySuccesses(t *testing.T) {
	b := NewBoard()
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		// Two of the five style slots fail.
		if req.Style == StyleModifier(1) || req.Style == StyleModifier(3) {
			return Result{Failure: "backend says no"}, nil
		}
		return Result{Image: []byte("ok")}, nil
	})
	o := NewOrchestrator(b, gen, 1280)

	ids := o.Submit(context.Background(), "a prompt", nil)
	waitStatus(t, o, StatusSuccess)

	if b.Len() != 3 {
		t.Fatalf("board has %d nodes, want 3: failed placeholders are removed", b.Len())
	}
	for i, id := range ids {
		_, ok := b.Get(id)
		wantGone := i == 1 || i == 3
		if ok == wantGone {
			t.Errorf("slot %d present=%v, want present=%v", i, ok, !wantGone)
		}
	}
	for _, n := range b.Nodes() {
		if n.IsLoading {
			t.Errorf("node %s still loading after the batch settled", n.ID)
		}
		if !strings.HasPrefix(n.URL, "data:") {
			t.Errorf("node %s URL = %q, want a data URL", n.ID, n.URL)
		}
	}
}

func TestTransportErrorTreatedAsFailure(t *testing.T) {
	b := NewBoard()
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{}, errors.New("connection refused")
	})
	o := NewOrchestrator(b, gen, 1280)

	o.Submit(context.Background(), "p", nil)
	waitStatus(t, o, StatusSuccess)

	if b.Len() != 0 {
		t.Errorf("board has %d nodes, want 0", b.Len())
	}
	if o.Status() != StatusSuccess {
		t.Errorf("status = %v, want success even when every slot failed", o.Status())
	}
}

func TestResolveUpdatesInPlace(t *testing.T) {
	b := NewBoard()
	release := make(chan struct{})
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		<-release
		return Result{Image: []byte("ok")}, nil
	})
	o := NewOrchestrator(b, gen, 1280)

	ids := o.Submit(context.Background(), "p", nil)

	// The user drags a placeholder while its request is still in flight.
	x, y := 1234.0, -777.0
	b.Update(ids[0], Patch{X: &x, Y: &y})

	close(release)
	waitStatus(t, o, StatusSuccess)

	n, ok := b.Get(ids[0])
	if !ok {
		t.Fatal("resolved node lost its id")
	}
	if n.X != 1234 || n.Y != -777 {
		t.Errorf("node at (%f,%f), want the dragged (1234,-777)", n.X, n.Y)
	}
}

func TestDeletedPlaceholderStaysDeleted(t *testing.T) {
	b := NewBoard()
	release := make(chan struct{})
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		<-release
		return Result{Image: []byte("ok")}, nil
	})
	o := NewOrchestrator(b, gen, 1280)

	ids := o.Submit(context.Background(), "p", nil)
	b.Delete(ids[2])

	close(release)
	waitStatus(t, o, StatusSuccess)

	if _, ok := b.Get(ids[2]); ok {
		t.Error("a late result resurrected a deleted placeholder")
	}
	if b.Len() != BatchSize-1 {
		t.Errorf("board has %d nodes, want %d", b.Len(), BatchSize-1)
	}
}

func TestSubmitSpawnsBelowSelectedSource(t *testing.T) {
	b := NewBoard()
	src := testNode("src", 1000, 2000)
	b.Add(src)
	b.Select("src")
	o := NewOrchestrator(b, okGenerator(), 1280)
	o.SetRand(rand.New(rand.NewSource(3)))

	ids := o.Submit(context.Background(), "variation", nil)
	waitStatus(t, o, StatusSuccess)

	for i, id := range ids {
		n, _ := b.Get(id)
		if n.ParentID != "src" {
			t.Errorf("slot %d ParentID = %q, want src", i, n.ParentID)
		}
		wantX := 1000 + (float64(i)-float64(BatchSize-1)/2)*SpawnSpacing
		if !approxEqual(n.X, wantX, epsilon) {
			t.Errorf("slot %d X = %f, want %f", i, n.X, wantX)
		}
		lo, hi := 2000.0+SpawnRowDrop-SpawnJitter, 2000.0+SpawnRowDrop+SpawnJitter
		if n.Y < lo || n.Y > hi {
			t.Errorf("slot %d Y = %f, want within [%f,%f]", i, n.Y, lo, hi)
		}
	}
}

func TestSubmitWithUploadAnchorsToReference(t *testing.T) {
	b := NewBoard()
	var gotRefs int
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		<-mu
		if len(req.Reference) > 0 {
			gotRefs++
		}
		mu <- struct{}{}
		return Result{Image: []byte("ok")}, nil
	})
	o := NewOrchestrator(b, gen, 1280)

	ids := o.Submit(context.Background(), "in this style", testPNG(t))
	waitStatus(t, o, StatusSuccess)

	if b.Len() != BatchSize+1 {
		t.Fatalf("board has %d nodes, want %d variants plus the reference", b.Len(), BatchSize+1)
	}

	// The reference node sits at the empty-board default anchor.
	var ref ImageNode
	for _, n := range b.Nodes() {
		isVariant := false
		for _, id := range ids {
			if n.ID == id {
				isVariant = true
			}
		}
		if !isVariant {
			ref = n
		}
	}
	want := DefaultAnchor(1280)
	if ref.X != want.X || ref.Y != want.Y {
		t.Errorf("reference at (%f,%f), want %+v", ref.X, ref.Y, want)
	}
	if ref.IsLoading {
		t.Error("reference node marked loading")
	}
	if !strings.HasPrefix(ref.URL, "data:image/png") {
		t.Errorf("reference URL = %q, want a png data URL", ref.URL)
	}

	for _, id := range ids {
		n, _ := b.Get(id)
		if n.ParentID != ref.ID {
			t.Errorf("variant %s ParentID = %q, want the reference %s", id, n.ParentID, ref.ID)
		}
	}
	if gotRefs != BatchSize {
		t.Errorf("%d requests carried the reference bytes, want %d", gotRefs, BatchSize)
	}
}

func TestSubmitRejectsMalformedUpload(t *testing.T) {
	b := NewBoard()
	o := NewOrchestrator(b, okGenerator(), 1280)

	o.Submit(context.Background(), "p", []byte("not an image at all"))
	waitStatus(t, o, StatusSuccess)

	if b.Len() != BatchSize {
		t.Errorf("board has %d nodes, want %d: bad upload must not add a node", b.Len(), BatchSize)
	}
	for _, n := range b.Nodes() {
		if n.ParentID != "" {
			t.Errorf("node %s ParentID = %q, want none", n.ID, n.ParentID)
		}
	}
}

func TestEachSlotGetsDistinctStyle(t *testing.T) {
	b := NewBoard()
	styles := make(chan string, BatchSize)
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		styles <- req.Style
		return Result{Image: []byte("ok")}, nil
	})
	o := NewOrchestrator(b, gen, 1280)

	o.Submit(context.Background(), "p", nil)
	waitStatus(t, o, StatusSuccess)
	close(styles)

	seen := map[string]bool{}
	for s := range styles {
		if seen[s] {
			t.Errorf("style %q used twice in one batch", s)
		}
		seen[s] = true
	}
	if len(seen) != BatchSize {
		t.Errorf("got %d distinct styles, want %d", len(seen), BatchSize)
	}
}

func TestOverlappingBatchesSettleTogether(t *testing.T) {
	b := NewBoard()
	release1 := make(chan struct{})
	release2 := make(chan struct{})
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		if strings.HasPrefix(req.Prompt, "first") {
			<-release1
		} else {
			<-release2
		}
		return Result{Image: []byte("ok")}, nil
	})
	o := NewOrchestrator(b, gen, 1280)

	first := o.Submit(context.Background(), "first prompt", nil)
	second := o.Submit(context.Background(), "second prompt", nil)

	if first[0] == second[0] {
		t.Fatal("two batches in the same millisecond collided on ids")
	}

	close(release1)
	// The first batch settling must not flip the status while the second
	// is still in flight.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if n, _ := b.Get(first[0]); !n.IsLoading {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if o.Status() != StatusGenerating {
		t.Errorf("status = %v with a batch still in flight, want generating", o.Status())
	}

	close(release2)
	waitStatus(t, o, StatusSuccess)
	if b.Len() != 2*BatchSize {
		t.Errorf("board has %d nodes, want %d", b.Len(), 2*BatchSize)
	}
}

func TestCancelledSessionDropsPlaceholders(t *testing.T) {
	b := NewBoard()
	started := make(chan struct{}, BatchSize)
	gen := GeneratorFunc(func(ctx context.Context, req Request) (Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return Result{}, ctx.Err()
	})
	o := NewOrchestrator(b, gen, 1280)

	ctx, cancel := context.WithCancel(context.Background())
	o.Submit(ctx, "p", nil)
	for i := 0; i < BatchSize; i++ {
		<-started
	}
	cancel()
	waitStatus(t, o, StatusSuccess)

	if b.Len() != 0 {
		t.Errorf("board has %d nodes after cancellation, want 0", b.Len())
	}
}

// testPNG returns a tiny valid PNG for upload tests.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 4; i++ {
		img.Set(i, i, color.RGBA{0xff, 0, 0, 0xff})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
