package gcol

import (
	"bytes"
	"hash/crc32"
	"sort"
)

// readFooter parses the fixed-size Footer plus trailer magic from the
// tail of a V2 chunk. tail may be the whole file or just its last
// SuffixRangeSize bytes, as returned by a suffix-range GET; either
// way the trailer magic must be the final 8 bytes.
func readFooter(tail []byte) (Footer, error) {
	if len(tail) < FooterSize+len(TrailerMagic) {
		return Footer{}, errCorrupt("gcol: tail too short to contain a V2 footer")
	}
	trailerStart := len(tail) - len(TrailerMagic)
	if !bytes.Equal(tail[trailerStart:], TrailerMagic[:]) {
		return Footer{}, errCorrupt("gcol: missing trailer magic")
	}

	footerStart := trailerStart - FooterSize
	r := newReader(tail[footerStart:trailerStart])

	var f Footer
	magic, err := r.take(len(HeaderMagic))
	if err != nil {
		return Footer{}, err
	}
	copy(f.Magic[:], magic)
	if f.Magic != HeaderMagic {
		return Footer{}, errCorrupt("gcol: footer magic mismatch")
	}
	if f.Version, err = r.u32(); err != nil {
		return Footer{}, err
	}
	if f.Version != Version2 {
		return Footer{}, errUnsupported("gcol: footer declares unsupported version")
	}
	if f.IndexOffset, err = r.u64(); err != nil {
		return Footer{}, err
	}
	if f.IndexLength, err = r.u64(); err != nil {
		return Footer{}, err
	}
	if f.EntityCount, err = r.u32(); err != nil {
		return Footer{}, err
	}
	if f.Checksum, err = r.u32(); err != nil {
		return Footer{}, err
	}
	return f, nil
}

// decodeEntityIndex parses the entity index section given the full
// chunk bytes and an already-parsed Footer. Entries come back sorted
// by EntityID (encode.go emits them in subject-sorted row order).
func decodeEntityIndex(full []byte, f Footer) ([]EntityIndexEntry, error) {
	end := f.IndexOffset + f.IndexLength
	if end > uint64(len(full)) {
		return nil, errCorrupt("gcol: entity index extends past end of file")
	}
	r := newReader(full[f.IndexOffset:end])
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	entries := make([]EntityIndexEntry, n)
	for i := range entries {
		id, err := r.lenPrefixedString()
		if err != nil {
			return nil, err
		}
		off, err := r.u64()
		if err != nil {
			return nil, err
		}
		length, err := r.u64()
		if err != nil {
			return nil, err
		}
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		entries[i] = EntityIndexEntry{EntityID: id, ByteOffset: off, ByteLength: length, TripleCount: count}
	}
	return entries, nil
}

// findEntity returns the index entry for entityID via binary search
// (entries are subject-sorted) and whether it was found at all. A
// miss here means the entity is definitely absent from this chunk,
// without decoding a single value column.
func findEntity(entries []EntityIndexEntry, entityID string) (EntityIndexEntry, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].EntityID >= entityID })
	if i < len(entries) && entries[i].EntityID == entityID {
		return entries[i], true
	}
	return EntityIndexEntry{}, false
}

func verifyChecksum(dataSection []byte, want uint32) error {
	got := crc32.Checksum(dataSection, crc32cTable)
	if got != want {
		return errChecksum("gcol: data section checksum mismatch")
	}
	return nil
}

// ParseSuffixFooterAndIndex parses the footer and entity index from
// just the trailing bytes of a V2 chunk (as returned by a
// suffix-range GET), given the file's total size. It does not verify
// the data-section checksum, since that section isn't present in a
// suffix fetch; callers doing a full decode afterward get checksum
// verification from Decode/DecodeEntity.
func ParseSuffixFooterAndIndex(tail []byte, fileSize uint64) (Footer, []EntityIndexEntry, error) {
	f, err := readFooter(tail)
	if err != nil {
		return Footer{}, nil, err
	}

	tailStart := fileSize - uint64(len(tail))
	if f.IndexOffset < tailStart {
		return Footer{}, nil, errCorrupt("gcol: entity index not covered by suffix range")
	}
	localOffset := f.IndexOffset - tailStart
	localEnd := localOffset + f.IndexLength
	if localEnd > uint64(len(tail)) {
		return Footer{}, nil, errCorrupt("gcol: entity index not covered by suffix range")
	}

	entries, err := decodeEntityIndex(tail[:localEnd], Footer{IndexOffset: localOffset, IndexLength: f.IndexLength})
	if err != nil {
		return Footer{}, nil, err
	}
	return f, entries, nil
}
