package game

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// Key identifies a canonical position across self-play games.
type Key [16]byte

// KeyOf hashes a canonical encoding. Two positions that encode to the same
// vector share a key regardless of which player was to move.
func KeyOf(encoding []float32) Key {
	buf := make([]byte, 4*len(encoding))
	for i, x := range encoding {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return Key(xxh3.Hash128(buf).Bytes())
}
