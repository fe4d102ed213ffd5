package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeFloats serializes float64 slots as little-endian bit patterns.
// Bit patterns, not decimal text: NaN payloads and -0 survive the round
// trip, and the stored bytes hash identically to the in-memory values.
func encodeFloats(vals []float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("float blob length %d not a multiple of 8", len(data))
	}
	if len(data) == 0 {
		return nil, nil
	}
	vals := make([]float64, len(data)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vals, nil
}

// encodeInts serializes int64 slots little-endian.
func encodeInts(vals []int64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

func decodeInts(data []byte) ([]int64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("int blob length %d not a multiple of 8", len(data))
	}
	if len(data) == 0 {
		return nil, nil
	}
	vals := make([]int64, len(data)/8)
	for i := range vals {
		vals[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vals, nil
}
