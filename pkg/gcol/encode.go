package gcol

import (
	"hash/crc32"
	"sort"

	"github.com/cuemby/graphd/pkg/types"
)

// rowDirEntrySize is the fixed width, in bytes, of one row-directory
// entry: subjectCode uint32, predicateCode uint32, objectType byte.
const rowDirEntrySize = 4 + 4 + 1

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Encode serializes triples into a GraphCol chunk at the given
// version. Triples are grouped by subject (sorted, so that a
// subject's rows occupy a single contiguous range of the row
// directory) and, within each subject, sorted by (predicate,
// timestamp descending) so the most recent version of a property
// comes first. Version2 additionally appends an entity index, footer,
// and trailer so a reader can reject an absent entity from a single
// suffix-range GET.
func Encode(triples []types.Triple, version uint32) ([]byte, error) {
	if version != Version1 && version != Version2 {
		return nil, errUnsupported("gcol: unsupported encode version")
	}

	ordered, groups := orderBySubject(triples)

	subjectDict := newDict()
	predicateDict := newDict()
	stringDict := newDict()
	refDict := newDict()

	for _, t := range ordered {
		subjectDict.codeFor(string(t.Subject))
		predicateDict.codeFor(string(t.Predicate))
		internObjectStrings(&stringDict, &refDict, t.Object)
	}

	minTimestamp := uint64(0)
	if len(ordered) > 0 {
		minTimestamp = ordered[0].Timestamp
		for _, t := range ordered {
			if t.Timestamp < minTimestamp {
				minTimestamp = t.Timestamp
			}
		}
	}

	var w writer
	w.bytes(HeaderMagic[:])
	w.u32(version)
	w.u32(uint32(len(groups)))
	w.u32(uint32(len(ordered)))
	w.u64(minTimestamp)

	writeDict(&w, subjectDict)
	writeDict(&w, predicateDict)
	writeDict(&w, stringDict)
	writeDict(&w, refDict)

	rowDirStart := uint64(w.len())

	for _, t := range ordered {
		w.u32(subjectDict.codeFor(string(t.Subject)))
		w.u32(predicateDict.codeFor(string(t.Predicate)))
		w.byte(byte(t.Object.Tag))
	}

	writeValueColumns(&w, ordered, stringDict, refDict)

	for _, t := range ordered {
		w.uvarint(t.Timestamp - minTimestamp)
	}
	for _, t := range ordered {
		var tx [26]byte
		copy(tx[:], t.TxId)
		w.bytes(tx[:])
	}

	if version == Version1 {
		return w.buf, nil
	}
	return appendV2Trailer(w, groups, rowDirStart)
}

// orderBySubject returns triples sorted by (subject, predicate,
// timestamp desc) and the subject-group boundaries (in row order)
// used to build the V2 entity index.
func orderBySubject(triples []types.Triple) ([]types.Triple, []subjectGroup) {
	ordered := make([]types.Triple, len(triples))
	copy(ordered, triples)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Subject != ordered[j].Subject {
			return ordered[i].Subject < ordered[j].Subject
		}
		if ordered[i].Predicate != ordered[j].Predicate {
			return ordered[i].Predicate < ordered[j].Predicate
		}
		return ordered[i].Timestamp > ordered[j].Timestamp
	})

	var groups []subjectGroup
	for i, t := range ordered {
		if len(groups) == 0 || groups[len(groups)-1].subject != t.Subject {
			groups = append(groups, subjectGroup{subject: t.Subject, startRow: i, rowCount: 1})
		} else {
			groups[len(groups)-1].rowCount++
		}
	}
	return ordered, groups
}

type subjectGroup struct {
	subject  types.EntityId
	startRow int
	rowCount int
}

func internObjectStrings(stringDict, refDict *dict, o types.TypedObject) {
	switch o.Tag {
	case types.TagString, types.TagDate, types.TagJSON, types.TagURL:
		stringDict.codeFor(o.Str)
	case types.TagRef:
		refDict.codeFor(string(o.Ref))
	case types.TagRefArray:
		for _, r := range o.RefArray {
			refDict.codeFor(string(r))
		}
	}
}

func writeValueColumns(w *writer, ordered []types.Triple, stringDict, refDict dict) {
	// BOOL: bit-packed, one bit per bool-tagged row, in row order.
	var boolByte byte
	var boolBits int
	for _, t := range ordered {
		if t.Object.Tag != types.TagBool {
			continue
		}
		if t.Object.Bool {
			boolByte |= 1 << boolBits
		}
		boolBits++
		if boolBits == 8 {
			w.byte(boolByte)
			boolByte = 0
			boolBits = 0
		}
	}
	if boolBits > 0 {
		w.byte(boolByte)
	}

	for _, t := range ordered {
		if t.Object.Tag == types.TagInt64 {
			w.uvarint(uint64(t.Object.Int64))
		}
	}
	for _, t := range ordered {
		if t.Object.Tag == types.TagFloat64 {
			w.f64(t.Object.Float64)
		}
	}
	for _, t := range ordered {
		if t.Object.Tag == types.TagGeoPoint {
			w.f64(t.Object.Geo.Lat)
			w.f64(t.Object.Geo.Lng)
		}
	}
	for _, t := range ordered {
		switch t.Object.Tag {
		case types.TagString, types.TagDate, types.TagJSON, types.TagURL:
			w.uvarint(uint64(stringDict.codeFor(t.Object.Str)))
		}
	}
	for _, t := range ordered {
		if t.Object.Tag == types.TagRef {
			w.uvarint(uint64(refDict.codeFor(string(t.Object.Ref))))
		}
	}
	for _, t := range ordered {
		if t.Object.Tag == types.TagRefArray {
			w.uvarint(uint64(len(t.Object.RefArray)))
			for _, r := range t.Object.RefArray {
				w.uvarint(uint64(refDict.codeFor(string(r))))
			}
		}
	}
	for _, t := range ordered {
		if t.Object.Tag == types.TagTimestamp {
			w.u64(uint64(t.Object.Time.UnixNano()))
		}
	}
}

// appendV2Trailer builds the row-directory-offset entity index plus
// footer and trailer magic and returns the complete chunk bytes.
func appendV2Trailer(w writer, groups []subjectGroup, rowDirStart uint64) ([]byte, error) {
	checksum := crc32.Checksum(w.buf, crc32cTable)

	entries := make([]EntityIndexEntry, len(groups))
	for i, g := range groups {
		entries[i] = EntityIndexEntry{
			EntityID:    string(g.subject),
			ByteOffset:  rowDirStart + uint64(g.startRow*rowDirEntrySize),
			ByteLength:  uint64(g.rowCount * rowDirEntrySize),
			TripleCount: uint32(g.rowCount),
		}
	}

	indexOffset := uint64(len(w.buf))
	var iw writer
	iw.uvarint(uint64(len(entries)))
	for _, e := range entries {
		iw.lenPrefixedString(e.EntityID)
		iw.u64(e.ByteOffset)
		iw.u64(e.ByteLength)
		iw.u32(e.TripleCount)
	}
	w.bytes(iw.buf)

	footer := Footer{
		Magic:       HeaderMagic,
		Version:     Version2,
		IndexOffset: indexOffset,
		IndexLength: uint64(len(iw.buf)),
		EntityCount: uint32(len(entries)),
		Checksum:    checksum,
	}
	w.bytes(footer.Magic[:])
	w.u32(footer.Version)
	w.u64(footer.IndexOffset)
	w.u64(footer.IndexLength)
	w.u32(footer.EntityCount)
	w.u32(footer.Checksum)
	w.bytes(TrailerMagic[:])

	return w.buf, nil
}

