package wsutil

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobwas/wsd/ws"
)

func readFrames(t *testing.T, p []byte) (frames []ws.Frame) {
	t.Helper()
	for len(p) > 0 {
		f, n, err := ws.DecodeFrame(p)
		require.NoError(t, err)
		frames = append(frames, f)
		p = p[n:]
	}
	return frames
}

func TestWriterFragments(t *testing.T) {
	for _, test := range []struct {
		size    int
		payload string
		exp     []ws.Frame
	}{
		{
			size:    4,
			payload: "",
			exp: []ws.Frame{
				ws.NewFrame(ws.OpText, true, []byte{}),
			},
		},
		{
			size:    4,
			payload: "abc",
			exp: []ws.Frame{
				ws.NewFrame(ws.OpText, true, []byte("abc")),
			},
		},
		{
			size:    4,
			payload: "abcd",
			exp: []ws.Frame{
				ws.NewFrame(ws.OpText, true, []byte("abcd")),
			},
		},
		{
			size:    4,
			payload: "abcdefghij",
			exp: []ws.Frame{
				ws.NewFrame(ws.OpText, false, []byte("abcd")),
				ws.NewFrame(ws.OpContinuation, false, []byte("efgh")),
				ws.NewFrame(ws.OpContinuation, true, []byte("ij")),
			},
		},
	} {
		t.Run(fmt.Sprintf("%d/%q", test.size, test.payload), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriterBuffer(&buf, make([]byte, test.size), ws.OpText)
			_, err := io.WriteString(w, test.payload)
			require.NoError(t, err)
			require.NoError(t, w.Flush())

			act := readFrames(t, buf.Bytes())
			require.Len(t, act, len(test.exp))
			for i := range act {
				assert.Equal(t, test.exp[i].Header, act[i].Header, "frame #%d", i)
				assert.Equal(t, string(test.exp[i].Payload), string(act[i].Payload), "frame #%d", i)
			}
		})
	}
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, NewTextMessage("Hello World"), 0))
	assert.Len(t, readFrames(t, buf.Bytes()), 1)

	buf.Reset()
	require.NoError(t, WriteMessage(&buf, NewTextMessage("Hello World"), 5))

	var a Assembler
	frames := readFrames(t, buf.Bytes())
	require.Len(t, frames, 3)
	for i, f := range frames {
		m, ok, err := a.Feed(f)
		require.NoError(t, err)
		if i == len(frames)-1 {
			require.True(t, ok)
			assert.Equal(t, "Hello World", string(m.Payload))
		}
	}
}
