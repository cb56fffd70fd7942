// Package gcol implements the GraphCol binary columnar chunk format:
// dictionary-encoded triple batches with a V2 entity index + footer
// enabling cheap entity-absence rejection via a single suffix-range
// GET.
package gcol

import "github.com/cuemby/graphd/pkg/graphdberr"

// Magic bytes identifying a GraphCol file, independent of version.
var HeaderMagic = [8]byte{'G', 'C', 'O', 'L', 'v', '0', '0', '1'}

// TrailerMagic is the fixed 8 bytes written as the final bytes of a
// V2 file, letting a reader discover the footer from a suffix-range
// GET of the file's tail without knowing the file's total size ahead
// of time.
var TrailerMagic = [8]byte{'G', 'C', 'O', 'L', 'T', 'A', 'I', 'L'}

const (
	Version1 uint32 = 1
	Version2 uint32 = 2
)

// FooterSize is GCOL_FOOTER_SIZE: the fixed encoded size, in bytes, of
// a V2 Footer (not including the 8-byte TrailerMagic that follows
// it).
const FooterSize = 8 + 4 + 8 + 8 + 4 + 4 // magic+version+indexOffset+indexLength+entityCount+checksum

// SuffixRangeSize is the number of trailing bytes a V2 suffix-range
// GET should request to be sure of covering the footer + trailer.
const SuffixRangeSize = 64 * 1024

// Footer is the fixed-size trailer metadata block of a V2 file.
type Footer struct {
	Magic       [8]byte
	Version     uint32
	IndexOffset uint64 // byte offset of the entity index, from file start
	IndexLength uint64 // byte length of the entity index
	EntityCount uint32
	Checksum    uint32 // CRC32C over the data section (everything before the entity index)
}

// EntityIndexEntry locates one subject's contiguous row range within
// a chunk's row directory (see encode.go: rows are grouped by subject
// at encode time, so a contiguous range always exists).
type EntityIndexEntry struct {
	EntityID    string
	ByteOffset  uint64 // absolute byte offset (from file start) of this entity's row-directory slice
	ByteLength  uint64 // length, in bytes, of this entity's row-directory slice
	TripleCount uint32
}

// errCorrupt/errUnsupported/errChecksum are convenience constructors
// for this format's fatal-per-chunk failure modes.
func errCorrupt(msg string) error { return graphdberr.New(graphdberr.CodeCorruptFormat, msg) }
func errUnsupported(msg string) error {
	return graphdberr.New(graphdberr.CodeUnsupportedVersion, msg)
}
func errChecksum(msg string) error { return graphdberr.New(graphdberr.CodeChecksumMismatch, msg) }
