// Package mural is an infinite-canvas board for iterating on AI-generated
// images with [Ebitengine].
//
// One submitted prompt fans out into five concurrent variant generations.
// Each variant appears immediately as a loading placeholder card; results
// resolve into the cards independently, and failed slots simply disappear.
// Any image can seed a new batch, building a visual tree of iterations whose
// lineage renders as curved connectors.
//
// # Quick start
//
//	gen := pollinations.New(pollinations.Options{})
//	store, _ := sqlitestore.New("mural.db")
//	s := mural.NewSurface(gen, store, 1280, 800)
//	if err := mural.Run(s, mural.RunConfig{Title: "mural"}); err != nil {
//		log.Fatal(err)
//	}
//
// # Architecture
//
// [Viewport] owns the world↔screen affine map (screen = world*zoom + pan)
// with pointer-anchored zoom. [Board] is the canonical, mutex-serialized
// collection of [ImageNode] values. [Interactor] is the single-active-gesture
// state machine for panning, dragging, rotating, resizing, and selecting.
// [ComputeLinks] derives the parent→child connector curves from scratch on
// every frame. [Orchestrator] implements the fan-out/fan-in generation flow
// against any [Generator] backend, and [Store] is the key→blob persistence
// collaborator (see the sqlitestore subpackage).
//
// [Ebitengine]: https://ebitengine.org
package mural
