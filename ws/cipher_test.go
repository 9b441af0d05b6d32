package ws

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
)

func TestCipher(t *testing.T) {
	type test struct {
		name   string
		in     []byte
		mask   [4]byte
		offset int
	}
	cases := []test{
		{
			name: "simple",
			in:   []byte("Hello, XOR!"),
			mask: [4]byte{1, 2, 3, 4},
		},
		{
			name: "simple",
			in:   []byte("Hello, XOR!"),
			mask: [4]byte{255, 255, 255, 255},
		},
	}
	for offset := 0; offset < 4; offset++ {
		for tail := 0; tail < 8; tail++ {
			for b64 := 0; b64 < 3; b64++ {
				p := make([]byte, b64*8+offset+tail)
				rand.Read(p)

				var m [4]byte
				rand.Read(m[:])

				cases = append(cases, test{
					name:   fmt.Sprintf("offset=%d/n=%d", offset, len(p)),
					in:     p,
					mask:   m,
					offset: offset,
				})
			}
		}
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			// naive implementation of xor-cipher
			exp := cipherNaive(test.in, test.mask, test.offset)

			res := make([]byte, len(test.in))
			copy(res, test.in)
			Cipher(res, test.mask, test.offset)

			if !bytes.Equal(res, exp) {
				t.Errorf("Cipher(%v, %v):\nact:\t%v\nexp:\t%v\n", test.in, test.mask, res, exp)
			}

			// Masking twice with the same key restores the input.
			Cipher(res, test.mask, test.offset)
			if !bytes.Equal(res, test.in) {
				t.Errorf("double Cipher() is not identity:\nact:\t%v\nexp:\t%v\n", res, test.in)
			}
		})
	}
}

func TestCipherChunks(t *testing.T) {
	p := make([]byte, 100)
	rand.Read(p)
	m := NewMask()

	exp := cipherNaive(p, m, 0)

	res := make([]byte, len(p))
	copy(res, p)
	for i := 0; i < len(res); i += 13 {
		j := i + 13
		if j > len(res) {
			j = len(res)
		}
		Cipher(res[i:j], m, i)
	}
	if !bytes.Equal(res, exp) {
		t.Errorf("chunked Cipher():\nact:\t%v\nexp:\t%v\n", res, exp)
	}
}

func cipherNaive(p []byte, m [4]byte, pos int) []byte {
	r := make([]byte, len(p))
	copy(r, p)
	for i := range r {
		r[i] ^= m[(pos+i)%4]
	}
	return r
}

func BenchmarkCipher(b *testing.B) {
	p := make([]byte, 4096)
	m := NewMask()
	b.SetBytes(int64(len(p)))
	for i := 0; i < b.N; i++ {
		Cipher(p, m, 0)
	}
}
