package world

import (
	"encoding/binary"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// RNGFactory produces deterministic RNG instances for world subsystems,
// grounded on the teacher's world_random.go deterministicSeedValue/
// newDeterministicRNG pair.
type RNGFactory func(rootSeed string, label string) *rand.Rand

// NewDeterministicRNG hashes (rootSeed, label) into a seed with xxhash and
// returns a freshly seeded RNG. Two calls with identical arguments always
// produce identically-seeded generators.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(seedValue(rootSeed, label)))
}

func seedValue(rootSeed, label string) int64 {
	h := xxhash.New()
	h.Write([]byte(rootSeed))
	h.Write([]byte{0})
	h.Write([]byte(label))
	sum := h.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// GibbsCellRNG derives the deterministic per-draw RNG required by §4.1: the
// Gibbs sampler's tie-breaking stream must be a pure function of
// (seed, px, py, iteration, cellIndex). Label composition (rather than a
// single hash call over all five fields) keeps this consistent with the
// rest of the package's (rootSeed, label) hashing convention.
func GibbsCellRNG(rootSeed string, px, py int32, iteration, cellIndex int) *rand.Rand {
	label := patchCellLabel(px, py, iteration, cellIndex)
	return NewDeterministicRNG(rootSeed, label)
}

func patchCellLabel(px, py int32, iteration, cellIndex int) string {
	buf := make([]byte, 0, 24)
	buf = appendInt32(buf, px)
	buf = appendInt32(buf, py)
	buf = appendInt(buf, iteration)
	buf = appendInt(buf, cellIndex)
	return string(buf)
}

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func appendInt(buf []byte, v int) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
	return append(buf, tmp[:]...)
}

// TickRNG derives the deterministic per-tick stream used for Random
// movement-conflict tie-breaking (§4.4).
func TickRNG(rootSeed string, tick uint64) *rand.Rand {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], tick)
	return NewDeterministicRNG(rootSeed, "resolve:"+string(tmp[:]))
}
