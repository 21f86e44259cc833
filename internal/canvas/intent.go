package canvas

import (
	"image/color"

	"github.com/google/uuid"

	"coboard/internal/wire"
)

// Intent is one local edit produced by the input layer (pointer
// events, toolbar, and so on — all outside this module). The core
// consumes intents, applies them locally first, and only then puts
// the resulting op on the wire.
type Intent struct {
	Canvas string
	Kind   wire.Kind
	Shape  wire.Shape
	From   wire.Point
	To     wire.Point
	Color  color.Color
	Width  int
}

// Op mints the immutable wire form of this intent for the given
// author.
func (i Intent) Op(author string) wire.DrawOp {
	return wire.DrawOp{
		ID:     uuid.NewString(),
		Kind:   i.Kind,
		Shape:  i.Shape,
		From:   i.From,
		To:     i.To,
		Color:  wire.FormatColor(i.Color),
		Width:  i.Width,
		Author: author,
		Canvas: i.Canvas,
	}
}
