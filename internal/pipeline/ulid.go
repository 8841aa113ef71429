package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 26-character Crockford Base32 strings whose leading bits
// are a millisecond timestamp, so IDs sort by creation time.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	// 48-bit big-endian timestamp in the first 6 bytes.
	binary.BigEndian.PutUint64(b[:8], ts<<16)
	rand.Read(b[6:])
	// A sequence counter in bytes 6-7 keeps IDs unique within one millisecond.
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeBase32(b)
}

// encodeBase32 renders the 128-bit value as 26 Crockford Base32 digits,
// most significant first.
func encodeBase32(b [16]byte) string {
	var out [26]byte
	v := b
	for i := 25; i >= 0; i-- {
		out[i] = crockford[v[15]&31]
		var carry byte
		for j := 0; j < 16; j++ {
			next := v[j] & 31
			v[j] = v[j]>>5 | carry<<3
			carry = next
		}
	}
	return string(out[:])
}
