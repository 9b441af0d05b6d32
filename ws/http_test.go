package ws

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUpgradeResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUpgradeResponse(&buf, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="))
	assert.Equal(t, ""+
		"HTTP/1.1 101 Switching Protocols\r\n"+
		"Upgrade: websocket\r\n"+
		"Connection: Upgrade\r\n"+
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n"+
		"\r\n",
		buf.String(),
	)
}

func TestWriteRejectResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRejectResponse(&buf, ErrHandshakeBadSecVersion.Error()))
	assert.Equal(t, ""+
		"HTTP/1.1 400 Bad Request\r\n"+
		"Content-Type: text/plain\r\n"+
		"Connection: close\r\n"+
		"Content-Length: 42\r\n"+
		"\r\n"+
		`"Sec-WebSocket-Version" header is not "13"`,
		buf.String(),
	)
}
