// Package bloom implements a classic Bloom filter over UTF-8 byte
// sequences, sized from a (capacity, target false-positive rate) pair.
// It guarantees no false negatives; mightContain may return true for a
// key never added, at a rate within 2x of the configured target for
// count <= capacity.
package bloom

import (
	"encoding/base64"
	"hash/fnv"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Filter is a probabilistic set-membership structure. Zero value is
// not usable; construct with New or Deserialize.
type Filter struct {
	bits []uint64 // bit array, m bits packed into ceil(m/64) words
	m    uint64   // number of bits
	k    uint64   // number of hash functions
	n    uint64   // number of items added (informational only)
}

// Params computes (m, k) from a target capacity and false-positive
// rate, using the standard formulas:
//
//	m = ceil(-n*ln(p) / ln(2)^2)
//	k = round(m/n * ln(2))
func Params(capacity uint64, targetFPR float64) (m, k uint64) {
	if capacity == 0 {
		capacity = 1
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.01
	}
	n := float64(capacity)
	mf := math.Ceil(-n * math.Log(targetFPR) / (math.Ln2 * math.Ln2))
	if mf < 64 {
		mf = 64
	}
	kf := math.Round((mf / n) * math.Ln2)
	if kf < 1 {
		kf = 1
	}
	return uint64(mf), uint64(kf)
}

// New creates a Bloom filter sized for capacity items at targetFPR.
func New(capacity uint64, targetFPR float64) *Filter {
	m, k := Params(capacity, targetFPR)
	words := (m + 63) / 64
	return &Filter{bits: make([]uint64, words), m: m, k: k}
}

// hashes returns the two independent 64-bit hashes combined via
// enhanced double hashing (Kirsch-Mitzenmacher): h_i = h1 + i*h2 +
// i^2 mod m. Using two different hash families (xxhash, FNV-1a)
// avoids correlated collisions between the two seeds.
func (f *Filter) hashes(key []byte) (h1, h2 uint64) {
	h1 = xxhash.Sum64(key)
	fh := fnv.New64a()
	fh.Write(key) //nolint:errcheck // hash.Hash Write never errors
	h2 = fh.Sum64()
	return h1, h2
}

func (f *Filter) bitIndexes(key []byte) []uint64 {
	h1, h2 := f.hashes(key)
	idxs := make([]uint64, f.k)
	for i := uint64(0); i < f.k; i++ {
		idxs[i] = (h1 + i*h2 + i*i) % f.m
	}
	return idxs
}

// Add inserts key into the filter. There is no removal.
func (f *Filter) Add(key []byte) {
	for _, idx := range f.bitIndexes(key) {
		f.bits[idx/64] |= 1 << (idx % 64)
	}
	f.n++
}

// AddString is a convenience wrapper over Add.
func (f *Filter) AddString(key string) { f.Add([]byte(key)) }

// MightContain reports whether key may be a member. False means
// definitely absent; true means probably present (or present).
func (f *Filter) MightContain(key []byte) bool {
	for _, idx := range f.bitIndexes(key) {
		if f.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// MightContainString is a convenience wrapper over MightContain.
func (f *Filter) MightContainString(key string) bool {
	return f.MightContain([]byte(key))
}

// Count returns the number of items Add has been called with (not
// deduplicated; informational only).
func (f *Filter) Count() uint64 { return f.n }

// Serialized is the wire/JSON-friendly form of a Filter: the raw bit
// array base64 encoded plus scalar metadata.
type Serialized struct {
	Filter  string `json:"filter"`
	K       uint64 `json:"k"`
	M       uint64 `json:"m"`
	Version int    `json:"version"`
	Count   uint64 `json:"meta_count"`
}

const serializeVersion = 1

// Serialize packs the filter into its wire form.
func (f *Filter) Serialize() Serialized {
	raw := make([]byte, len(f.bits)*8)
	for i, w := range f.bits {
		for b := 0; b < 8; b++ {
			raw[i*8+b] = byte(w >> (8 * b))
		}
	}
	return Serialized{
		Filter:  base64.StdEncoding.EncodeToString(raw),
		K:       f.k,
		M:       f.m,
		Version: serializeVersion,
		Count:   f.n,
	}
}

// Deserialize reconstructs a Filter from its wire form.
func Deserialize(s Serialized) (*Filter, error) {
	raw, err := base64.StdEncoding.DecodeString(s.Filter)
	if err != nil {
		return nil, err
	}
	words := (s.M + 63) / 64
	bits := make([]uint64, words)
	for i := range bits {
		var w uint64
		for b := 0; b < 8 && i*8+b < len(raw); b++ {
			w |= uint64(raw[i*8+b]) << (8 * b)
		}
		bits[i] = w
	}
	return &Filter{bits: bits, m: s.M, k: s.K, n: s.Count}, nil
}

// Merge folds other's bits into f (used to build a combined bloom
// from per-chunk blooms). Both filters must share (m, k).
func (f *Filter) Merge(other *Filter) error {
	if f.m != other.m || f.k != other.k {
		return errMismatchedParams
	}
	for i := range f.bits {
		f.bits[i] |= other.bits[i]
	}
	f.n += other.n
	return nil
}

var errMismatchedParams = &paramsError{}

type paramsError struct{}

func (*paramsError) Error() string { return "bloom: cannot merge filters with different (m, k)" }
