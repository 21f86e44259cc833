package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a frame cannot be decoded. A single
// malformed frame is not a reason to tear down the connection.
var ErrMalformed = errors.New("wire: malformed message")

// SystemAuthor is the reserved chat author used by the host for join,
// leave and rejection notices.
const SystemAuthor = "Server"

// RejectPrefix marks a Chat from SystemAuthor as an admission
// rejection. Recognized by convention, not by a distinct wire type.
const RejectPrefix = "ERROR:"

// Kind selects what a DrawOp does to its canvas.
type Kind string

const (
	KindDraw       Kind = "draw"       // stroke a shape
	KindClear      Kind = "clear"      // repaint with the carried color
	KindBackground Kind = "background" // set background color and repaint
)

// Shape selects the geometry of a KindDraw op.
type Shape string

const (
	ShapeFree Shape = "free" // one segment of a freehand stroke
	ShapeLine Shape = "line"
	ShapeRect Shape = "rect"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Message is any payload that can travel over a connection.
type Message interface {
	msgType() string
}

// Identity is the first and only pre-admission message a participant
// sends: its display name.
type Identity struct {
	Name string `json:"name"`
}

// DrawOp is one immutable incremental mutation to a named canvas.
type DrawOp struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Shape  Shape  `json:"shape,omitempty"`
	From   Point  `json:"from"`
	To     Point  `json:"to"`
	Color  string `json:"color"` // #rrggbb
	Width  int    `json:"width"`
	Author string `json:"author"`
	Canvas string `json:"canvas"`
}

// Chat carries one text message, verbatim.
type Chat struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// IsRejection reports whether this chat message is the host telling us
// our display name was refused.
func (c Chat) IsRejection() bool {
	return c.Author == SystemAuthor && strings.HasPrefix(c.Text, RejectPrefix)
}

// Snapshot transfers the full bitmap of one canvas, PNG-encoded. Sent
// only during join bootstrap.
type Snapshot struct {
	Canvas string `json:"canvas"`
	PNG    []byte `json:"png"`
}

// Presence is the full replacement set of admitted display names,
// never a diff.
type Presence struct {
	Names []string `json:"names"`
}

func (Identity) msgType() string { return "identity" }
func (DrawOp) msgType() string   { return "drawop" }
func (Chat) msgType() string     { return "chat" }
func (Snapshot) msgType() string { return "snapshot" }
func (Presence) msgType() string { return "presence" }

// frame is the self-describing envelope: the type tag is probed first
// so a receiver can dispatch without schema negotiation.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode marshals a message into one self-describing frame.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", m.msgType(), err)
	}
	return json.Marshal(frame{Type: m.msgType(), Data: data})
}

// Decode parses one frame back into its concrete message. Undecodable
// payloads and unknown type tags yield ErrMalformed.
func Decode(buf []byte) (Message, error) {
	var f frame
	if err := json.Unmarshal(buf, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var (
		m   Message
		err error
	)
	switch f.Type {
	case "identity":
		var v Identity
		err = json.Unmarshal(f.Data, &v)
		m = v
	case "drawop":
		var v DrawOp
		err = json.Unmarshal(f.Data, &v)
		m = v
	case "chat":
		var v Chat
		err = json.Unmarshal(f.Data, &v)
		m = v
	case "snapshot":
		var v Snapshot
		err = json.Unmarshal(f.Data, &v)
		m = v
	case "presence":
		var v Presence
		err = json.Unmarshal(f.Data, &v)
		m = v
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, f.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, f.Type, err)
	}
	return m, nil
}

// FormatColor renders a color as the #rrggbb form used on the wire.
// Alpha is dropped; the protocol only carries opaque colors.
func FormatColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// ParseColor parses a #rrggbb string back into an opaque RGBA.
func ParseColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("wire: bad color %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("wire: bad color %q: %v", s, err)
	}
	return color.RGBA{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
		A: 0xff,
	}, nil
}
