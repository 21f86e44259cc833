// Package canvas holds the drawing surfaces a participant owns locally.
// Convergence with other participants happens purely through message
// replication; nothing in here is shared across processes.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/fogleman/gg"

	"coboard/internal/wire"
)

// Canvas is one named drawing surface: a pixel buffer, a background
// color, and two local-only stacks of prior bitmaps. The history is
// never replicated.
type Canvas struct {
	name string

	mu         sync.Mutex
	img        *image.RGBA
	background color.RGBA
	undo       []*image.RGBA
	redo       []*image.RGBA
}

// New creates a canvas of the given size, filled with white.
func New(name string, w, h int) *Canvas {
	c := &Canvas{
		name:       name,
		img:        image.NewRGBA(image.Rect(0, 0, w, h)),
		background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
	c.fill(c.background)
	return c
}

func (c *Canvas) Name() string { return c.name }

// fill repaints the whole buffer. Caller holds c.mu (or owns c
// exclusively, as in New).
func (c *Canvas) fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// Apply renders one incremental mutation onto the buffer. It does not
// touch the undo history: replication applies ops as-is, and local
// authors push history themselves before applying.
func (c *Canvas) Apply(op wire.DrawOp) error {
	col, err := wire.ParseColor(op.Color)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch op.Kind {
	case wire.KindClear:
		c.fill(col)
		return nil
	case wire.KindBackground:
		c.background = col
		c.fill(col)
		return nil
	case wire.KindDraw:
		// fall through to the shape dispatch below
	default:
		return fmt.Errorf("canvas %q: unknown op kind %q", c.name, op.Kind)
	}

	ctx := gg.NewContextForRGBA(c.img)
	ctx.SetColor(col)
	ctx.SetLineWidth(float64(op.Width))

	switch op.Shape {
	case wire.ShapeFree:
		// A freehand stroke arrives as independent segments; round
		// caps make consecutive segments read as one smooth line.
		ctx.SetLineCapRound()
		ctx.DrawLine(float64(op.From.X), float64(op.From.Y), float64(op.To.X), float64(op.To.Y))
		ctx.Stroke()
	case wire.ShapeLine:
		ctx.SetLineCapButt()
		ctx.DrawLine(float64(op.From.X), float64(op.From.Y), float64(op.To.X), float64(op.To.Y))
		ctx.Stroke()
	case wire.ShapeRect:
		ctx.SetLineCapButt()
		x := min(op.From.X, op.To.X)
		y := min(op.From.Y, op.To.Y)
		w := abs(op.To.X - op.From.X)
		h := abs(op.To.Y - op.From.Y)
		ctx.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
		ctx.Stroke()
	default:
		return fmt.Errorf("canvas %q: unknown shape %q", c.name, op.Shape)
	}
	return nil
}

// EnsureSize grows the buffer to at least w x h, preserving prior
// content. Shrinking never happens; a smaller request is a no-op.
func (c *Canvas) EnsureSize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.img.Bounds()
	if w <= b.Dx() && h <= b.Dy() {
		return
	}
	if w < b.Dx() {
		w = b.Dx()
	}
	if h < b.Dy() {
		h = b.Dy()
	}
	grown := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(grown, grown.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
	draw.Draw(grown, b, c.img, image.Point{}, draw.Src)
	c.img = grown
}

// PushUndo records the current bitmap before a local edit. New local
// edits invalidate any redo states.
func (c *Canvas) PushUndo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.undo = append(c.undo, copyRGBA(c.img))
	c.redo = nil
}

// Undo restores the most recently pushed bitmap, if any.
func (c *Canvas) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.undo) == 0 {
		return false
	}
	c.redo = append(c.redo, c.img)
	c.img = c.undo[len(c.undo)-1]
	c.undo = c.undo[:len(c.undo)-1]
	return true
}

// Redo reverses the most recent Undo, if any.
func (c *Canvas) Redo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.redo) == 0 {
		return false
	}
	c.undo = append(c.undo, c.img)
	c.img = c.redo[len(c.redo)-1]
	c.redo = c.redo[:len(c.redo)-1]
	return true
}

// SetImage replaces the whole bitmap, as when a bootstrap snapshot
// arrives. The undo/redo history is invalidated and re-seeded with
// the new state as its base.
func (c *Canvas) SetImage(img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := img.Bounds()
	replaced := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(replaced, replaced.Bounds(), img, b.Min, draw.Src)
	c.img = replaced
	c.undo = []*image.RGBA{copyRGBA(replaced)}
	c.redo = nil
}

// EncodePNG renders the current bitmap to the portable form used by
// Snapshot messages.
func (c *Canvas) EncodePNG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("canvas %q: encode: %w", c.name, err)
	}
	return buf.Bytes(), nil
}

// Image returns a copy of the current bitmap.
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyRGBA(c.img)
}

// Background returns the current background color.
func (c *Canvas) Background() color.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background
}

func copyRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
