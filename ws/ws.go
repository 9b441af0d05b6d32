/*
Package ws implements the server side of the WebSocket protocol defined in
RFC6455: frame encoding and decoding, protocol checks and the opening
handshake.

Decoding works on byte buffers rather than on streams. DecodeFrame either
returns a complete frame together with the number of bytes consumed, or
ErrNeedMoreData when the buffer holds only a part of a frame:

	for {
		f, n, err := ws.DecodeFrame(buf)
		if err == ws.ErrNeedMoreData {
			break // Read more bytes into buf.
		}
		if err != nil {
			// Fail the connection with ws.StatusProtocolError.
		}
		buf = buf[n:]
		// Handle f.
	}

The opening handshake is split into parsing and validation so that callers
control how many bytes they buffer:

	req, n, err := ws.ParseRequest(buf)
	if err == nil {
		err = ws.ValidateRequest(req)
	}
	if err != nil {
		ws.WriteRejectResponse(conn, err.Error())
		return
	}
	ws.WriteUpgradeResponse(conn, ws.AcceptKey(req.Headers["sec-websocket-key"]))
	buf = buf[n:]

Frames sent by the server are never masked. MaskFrame and friends exist for
tests and for code acting as a client.
*/
package ws
