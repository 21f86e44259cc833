package wire

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDrawOp(t *testing.T) {
	op := DrawOp{
		ID:     "op-1",
		Kind:   KindDraw,
		Shape:  ShapeLine,
		From:   Point{X: 10, Y: 20},
		To:     Point{X: 110, Y: 220},
		Color:  "#ff0000",
		Width:  4,
		Author: "alice",
		Canvas: "Main Canvas",
	}
	buf, err := Encode(op)
	require.NoError(t, err)

	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, op, m)
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	sn := Snapshot{Canvas: "Notes", PNG: []byte{0x89, 'P', 'N', 'G'}}
	buf, err := Encode(sn)
	require.NoError(t, err)

	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, sn, m)
}

func TestEncodeDecodePresence(t *testing.T) {
	buf, err := Encode(Presence{Names: []string{"alice", "bob"}})
	require.NoError(t, err)

	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, Presence{Names: []string{"alice", "bob"}}, m)
}

func TestDecodeMalformed(t *testing.T) {
	for name, buf := range map[string][]byte{
		"garbage":      []byte("not json at all"),
		"unknown type": []byte(`{"type":"teleport","data":{}}`),
		"bad payload":  []byte(`{"type":"drawop","data":[1,2,3]}`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(buf)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestRejectionConvention(t *testing.T) {
	reject := Chat{Author: SystemAuthor, Text: "ERROR: Username 'alice' is already taken."}
	assert.True(t, reject.IsRejection())

	assert.False(t, Chat{Author: "alice", Text: "ERROR: just kidding"}.IsRejection())
	assert.False(t, Chat{Author: SystemAuthor, Text: "bob has joined the whiteboard."}.IsRejection())
}

func TestColorRoundTrip(t *testing.T) {
	c := color.RGBA{R: 0x12, G: 0xab, B: 0xef, A: 0xff}
	s := FormatColor(c)
	assert.Equal(t, "#12abef", s)

	back, err := ParseColor(s)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestParseColorRejectsJunk(t *testing.T) {
	for _, s := range []string{"", "#fff", "red", "#zzzzzz", "123456#"} {
		_, err := ParseColor(s)
		assert.Error(t, err, s)
	}
}
