package ws

import "encoding/binary"

// Cipher applies XOR cipher to the payload using mask.
// Offset is used to cipher chunked data (e.g. in io.Reader implementations).
//
// To convert masked data into unmasked data, or vice versa, the following
// algorithm is applied. The same algorithm applies regardless of the
// direction of the translation, e.g., the same steps are applied to
// mask the data as to unmask the data.
func Cipher(payload []byte, mask [4]byte, offset int) {
	n := len(payload)
	if n < 8 {
		for i := 0; i < n; i++ {
			payload[i] ^= mask[(offset+i)%4]
		}
		return
	}

	// Process bytes one by one until mask position is aligned back to zero.
	mpos := offset % 4
	ln := (4 - mpos) % 4
	for i := 0; i < ln; i++ {
		payload[i] ^= mask[(mpos+i)%4]
	}

	m := binary.LittleEndian.Uint32(mask[:])
	m2 := uint64(m)<<32 | uint64(m)

	p := payload[ln:]
	for len(p) >= 8 {
		v := binary.LittleEndian.Uint64(p)
		binary.LittleEndian.PutUint64(p, v^m2)
		p = p[8:]
	}
	for i := range p {
		p[i] ^= mask[i%4]
	}
}
