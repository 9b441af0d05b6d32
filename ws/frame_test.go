package ws

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestOpCodeIsControl(t *testing.T) {
	for _, test := range []struct {
		code OpCode
		exp  bool
	}{
		{OpClose, true},
		{OpPing, true},
		{OpPong, true},
		{OpBinary, false},
		{OpText, false},
		{OpContinuation, false},
	} {
		t.Run(fmt.Sprintf("0x%02x", test.code), func(t *testing.T) {
			if act := test.code.IsControl(); act != test.exp {
				t.Errorf("IsControl = %v; want %v", act, test.exp)
			}
		})
	}
}

func TestOpCodeIsReserved(t *testing.T) {
	for c := OpCode(0); c <= 0xf; c++ {
		exp := (c >= 0x3 && c <= 0x7) || c >= 0xb
		assert.Equal(t, exp, c.IsReserved(), "op code 0x%x", byte(c))
	}
}

func TestNewCloseFrameData(t *testing.T) {
	for _, test := range []struct {
		name   string
		reason string
		length int
	}{
		{"empty", "", 2},
		{"short", "bye", 5},
		{"cropped", strings.Repeat("x", 200), MaxControlFramePayloadSize},
		// 'ж' is two bytes, so 123 bytes of reason would split the last rune.
		{"cropped utf8", "xx" + strings.Repeat("ж", 100), MaxControlFramePayloadSize - 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := NewCloseFrameData(StatusGoingAway, test.reason)
			assert.Equal(t, test.length, len(p))

			code, reason := ParseCloseFrameData(p)
			assert.Equal(t, StatusGoingAway, code)
			assert.True(t, utf8.ValidString(reason))
			assert.True(t, strings.HasPrefix(test.reason, reason))
		})
	}
}

func TestStatusCodeRanges(t *testing.T) {
	assert.True(t, StatusNormalClosure.IsProtocolSpec())
	assert.True(t, StatusNormalClosure.IsProtocolDefined())
	assert.True(t, StatusNoStatusRcvd.IsProtocolReserved())
	assert.True(t, StatusCode(3000).IsApplicationSpec())
	assert.True(t, StatusCode(4999).IsPrivateSpec())
	assert.True(t, StatusCode(999).IsNotUsed())
	assert.True(t, StatusCode(0).Empty())
}

func TestMaskFrame(t *testing.T) {
	src := NewTextFrame("Hello")
	m := [4]byte{1, 2, 3, 4}

	masked := MaskFrameWith(src, m)
	assert.True(t, masked.Header.Masked)
	assert.Equal(t, m, masked.Header.Mask)
	assert.Equal(t, "Hello", string(src.Payload), "source payload must be left intact")
	assert.NotEqual(t, src.Payload, masked.Payload)

	Cipher(masked.Payload, m, 0)
	assert.Equal(t, src.Payload, masked.Payload)
}

func TestCompiledPong(t *testing.T) {
	assert.Equal(t, []byte{0x8a, 0x00}, CompiledPong)
}
