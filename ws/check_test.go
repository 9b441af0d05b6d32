package ws

import (
	"fmt"
	"strings"
	"testing"
)

func TestCheckHeader(t *testing.T) {
	for i, test := range []struct {
		h   Header
		s   State
		exp error
	}{
		{
			h: Header{OpCode: OpText, Fin: true, Masked: true},
			s: StateServerSide,
		},
		{
			h:   Header{OpCode: OpText, Fin: true},
			s:   StateServerSide,
			exp: ErrProtocolMaskRequired,
		},
		{
			h:   Header{OpCode: OpText, Fin: true, Masked: true},
			s:   StateClientSide,
			exp: ErrProtocolMaskUnexpected,
		},
		{
			h:   Header{OpCode: OpContinuation, Fin: true, Masked: true},
			s:   StateServerSide,
			exp: ErrProtocolContinuationUnexpected,
		},
		{
			h: Header{OpCode: OpContinuation, Fin: true, Masked: true},
			s: StateServerSide | StateFragmented,
		},
		{
			h:   Header{OpCode: OpBinary, Fin: true, Masked: true},
			s:   StateServerSide | StateFragmented,
			exp: ErrProtocolContinuationExpected,
		},
		{
			h: Header{OpCode: OpPing, Fin: true, Masked: true},
			s: StateServerSide | StateFragmented,
		},
		{
			h:   Header{OpCode: OpText, Fin: true, Masked: true, Rsv: Rsv(true, false, false)},
			s:   StateServerSide,
			exp: ErrProtocolNonZeroRsv,
		},
		{
			h:   Header{OpCode: OpClose, Fin: true, Masked: true, Length: 126},
			s:   StateServerSide,
			exp: ErrProtocolControlPayloadOverflow,
		},
	} {
		t.Run(fmt.Sprintf("#%d", i), func(t *testing.T) {
			if act := CheckHeader(test.h, test.s); act != test.exp {
				t.Errorf("CheckHeader() = %v; want %v", act, test.exp)
			}
		})
	}
}

func TestCheckCloseFrameData(t *testing.T) {
	for _, test := range []struct {
		code   StatusCode
		reason string
		exp    error
	}{
		{StatusNormalClosure, "", nil},
		{StatusGoingAway, "shutdown", nil},
		{StatusCode(3000), "", nil},
		{StatusCode(4999), "", nil},
		{StatusCode(999), "", ErrProtocolStatusCodeNotInUse},
		{StatusNoStatusRcvd, "", ErrProtocolStatusCodeApplicationLevel},
		{StatusAbnormalClosure, "", ErrProtocolStatusCodeApplicationLevel},
		{StatusNoMeaningYet, "", ErrProtocolStatusCodeNoMeaning},
		{StatusCode(1016), "", ErrProtocolStatusCodeUnknown},
		{StatusCode(4000), "", nil},
		{StatusCode(5000), "", ErrProtocolStatusCodeUnknown},
		{StatusCode(65535), "", ErrProtocolStatusCodeUnknown},
		{StatusNormalClosure, string([]byte{0xff, 0xfe}), ErrProtocolInvalidUTF8},
	} {
		t.Run(fmt.Sprintf("%d/%s", test.code, strings.ToValidUTF8(test.reason, "?")), func(t *testing.T) {
			if act := CheckCloseFrameData(test.code, test.reason); act != test.exp {
				t.Errorf("CheckCloseFrameData() = %v; want %v", act, test.exp)
			}
		})
	}
}

func TestStateSetOrClearIf(t *testing.T) {
	s := StateServerSide
	s = s.SetOrClearIf(true, StateFragmented)
	if !s.Is(StateFragmented) || !s.Is(StateServerSide) {
		t.Fatalf("unexpected state %08b", s)
	}
	s = s.SetOrClearIf(false, StateFragmented)
	if s.Is(StateFragmented) {
		t.Fatalf("unexpected state %08b", s)
	}
}
