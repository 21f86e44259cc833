package canvas

import (
	"bytes"
	"fmt"
	"image/png"
	"sort"
	"sync"

	"coboard/internal/wire"
)

// Board is the set of canvases one participant holds. Canvas ids are
// globally meaningful: every participant that knows an id agrees it
// names the same surface, even though bitmaps may momentarily diverge
// while ops are in flight.
type Board struct {
	w, h int

	mu       sync.Mutex
	canvases map[string]*Canvas
}

// NewBoard creates an empty board whose canvases materialize at the
// given default size.
func NewBoard(w, h int) *Board {
	return &Board{w: w, h: h, canvases: make(map[string]*Canvas)}
}

// Ensure returns the named canvas, materializing an empty white one if
// the id has never been seen locally. Ops and snapshots that reference
// unknown canvases must never fail.
func (b *Board) Ensure(name string) *Canvas {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.canvases[name]
	if !ok {
		c = New(name, b.w, b.h)
		b.canvases[name] = c
	}
	return c
}

// Get looks up a canvas without materializing it.
func (b *Board) Get(name string) (*Canvas, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.canvases[name]
	return c, ok
}

// Names returns the sorted set of canvas ids currently held.
func (b *Board) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.canvases))
	for name := range b.canvases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply is the replicator entry point for draw ops: materialize the
// target canvas if needed, then render the op.
func (b *Board) Apply(op wire.DrawOp) error {
	return b.Ensure(op.Canvas).Apply(op)
}

// ApplySnapshot installs a full-bitmap snapshot. The bytes are decoded
// before any local state is touched, so an undecodable snapshot leaves
// the board unchanged and the caller can skip just that canvas.
func (b *Board) ApplySnapshot(sn wire.Snapshot) error {
	img, err := png.Decode(bytes.NewReader(sn.PNG))
	if err != nil {
		return fmt.Errorf("snapshot for canvas %q: decode: %w", sn.Canvas, err)
	}
	b.Ensure(sn.Canvas).SetImage(img)
	return nil
}

// Close removes a canvas locally. Closure is never replicated.
func (b *Board) Close(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.canvases, name)
}

// Snapshots encodes every canvas for join bootstrap. A canvas whose
// bitmap fails to encode is skipped; the rest still ship.
func (b *Board) Snapshots() []wire.Snapshot {
	b.mu.Lock()
	list := make([]*Canvas, 0, len(b.canvases))
	for _, c := range b.canvases {
		list = append(list, c)
	}
	b.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })

	snaps := make([]wire.Snapshot, 0, len(list))
	for _, c := range list {
		data, err := c.EncodePNG()
		if err != nil {
			continue
		}
		snaps = append(snaps, wire.Snapshot{Canvas: c.Name(), PNG: data})
	}
	return snaps
}
