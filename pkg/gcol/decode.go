package gcol

import (
	"bytes"
	"time"

	"github.com/cuemby/graphd/pkg/types"
)

// row is the decoded form of one row-directory entry, before value
// columns have been resolved against it.
type row struct {
	subjectCode   uint32
	predicateCode uint32
	tag           types.ObjectTag
}

// Decode parses a complete GraphCol chunk (either version) back into
// its triples, in the same (subject, predicate, timestamp desc) order
// Encode produced. For V2 chunks the data section's checksum is
// verified against the footer before decoding.
func Decode(buf []byte) ([]types.Triple, error) {
	dataEnd := uint64(len(buf))
	if v, ok := peekVersion(buf); ok && v == Version2 {
		f, err := readFooter(buf)
		if err != nil {
			return nil, err
		}
		if err := verifyChecksum(buf[:f.IndexOffset], f.Checksum); err != nil {
			return nil, err
		}
		dataEnd = f.IndexOffset
	}
	return decodeDataSection(buf[:dataEnd])
}

// DecodeEntity answers whether entityID is present in a V2 chunk and,
// if so, that entity's triples. A miss is resolved entirely from the
// entity index (no value-column decode); a hit still requires a full
// data-section decode, since the index locates a row-directory range
// but the row directory alone cannot resolve dictionary-coded values,
// because dictionaries are chunk-global rather than per-entity.
func DecodeEntity(buf []byte, entityID string) ([]types.Triple, bool, error) {
	f, err := readFooter(buf)
	if err != nil {
		return nil, false, err
	}
	entries, err := decodeEntityIndex(buf, f)
	if err != nil {
		return nil, false, err
	}
	if _, ok := findEntity(entries, entityID); !ok {
		return nil, false, nil
	}
	if err := verifyChecksum(buf[:f.IndexOffset], f.Checksum); err != nil {
		return nil, false, err
	}
	triples, err := decodeDataSection(buf[:f.IndexOffset])
	if err != nil {
		return nil, false, err
	}
	var out []types.Triple
	for _, t := range triples {
		if string(t.Subject) == entityID {
			out = append(out, t)
		}
	}
	return out, true, nil
}

func peekVersion(buf []byte) (uint32, bool) {
	if len(buf) < len(HeaderMagic)+4 {
		return 0, false
	}
	r := newReader(buf)
	if _, err := r.take(len(HeaderMagic)); err != nil {
		return 0, false
	}
	v, err := r.u32()
	if err != nil {
		return 0, false
	}
	return v, true
}

func decodeDataSection(buf []byte) ([]types.Triple, error) {
	r := newReader(buf)

	magic, err := r.take(len(HeaderMagic))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, HeaderMagic[:]) {
		return nil, errCorrupt("gcol: header magic mismatch")
	}
	version, err := r.u32()
	if err != nil {
		return nil, err
	}
	if version != Version1 && version != Version2 {
		return nil, errUnsupported("gcol: unsupported chunk version")
	}
	if _, err = r.u32(); err != nil { // entity count (informational; row directory is authoritative)
		return nil, err
	}
	tripleCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	minTimestamp, err := r.u64()
	if err != nil {
		return nil, err
	}

	subjectDict, err := readDict(r)
	if err != nil {
		return nil, err
	}
	predicateDict, err := readDict(r)
	if err != nil {
		return nil, err
	}
	stringDict, err := readDict(r)
	if err != nil {
		return nil, err
	}
	refDict, err := readDict(r)
	if err != nil {
		return nil, err
	}

	rows := make([]row, tripleCount)
	for i := range rows {
		subjectCode, err := r.u32()
		if err != nil {
			return nil, err
		}
		predicateCode, err := r.u32()
		if err != nil {
			return nil, err
		}
		tagByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		rows[i] = row{subjectCode: subjectCode, predicateCode: predicateCode, tag: types.ObjectTag(tagByte)}
	}

	objects, err := readValueColumns(r, rows, stringDict, refDict)
	if err != nil {
		return nil, err
	}

	deltas := make([]uint64, tripleCount)
	for i := range deltas {
		d, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		deltas[i] = d
	}

	txIds := make([]types.TxId, tripleCount)
	for i := range txIds {
		b, err := r.take(26)
		if err != nil {
			return nil, err
		}
		txIds[i] = types.TxId(bytes.TrimRight(b, "\x00"))
	}

	triples := make([]types.Triple, tripleCount)
	for i, rw := range rows {
		if int(rw.subjectCode) >= len(subjectDict) || int(rw.predicateCode) >= len(predicateDict) {
			return nil, errCorrupt("gcol: dictionary code out of range")
		}
		triples[i] = types.Triple{
			Subject:   types.EntityId(subjectDict[rw.subjectCode]),
			Predicate: types.Predicate(predicateDict[rw.predicateCode]),
			Object:    objects[i],
			Timestamp: minTimestamp + deltas[i],
			TxId:      txIds[i],
		}
	}
	return triples, nil
}

func readValueColumns(r *reader, rows []row, stringDict, refDict []string) ([]types.TypedObject, error) {
	objects := make([]types.TypedObject, len(rows))

	boolCount := 0
	for _, rw := range rows {
		if rw.tag == types.TagBool {
			boolCount++
		}
	}
	boolBytes, err := r.take((boolCount + 7) / 8)
	if err != nil {
		return nil, err
	}
	boolCursor := 0
	nextBool := func() bool {
		b := boolBytes[boolCursor/8]
		v := b&(1<<(boolCursor%8)) != 0
		boolCursor++
		return v
	}

	for i, rw := range rows {
		if rw.tag != types.TagBool {
			continue
		}
		objects[i] = types.BoolObject(nextBool())
	}
	for i, rw := range rows {
		if rw.tag != types.TagInt64 {
			continue
		}
		v, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		objects[i] = types.Int64Object(int64(v))
	}
	for i, rw := range rows {
		if rw.tag != types.TagFloat64 {
			continue
		}
		v, err := r.f64()
		if err != nil {
			return nil, err
		}
		objects[i] = types.Float64Object(v)
	}
	for i, rw := range rows {
		if rw.tag != types.TagGeoPoint {
			continue
		}
		lat, err := r.f64()
		if err != nil {
			return nil, err
		}
		lng, err := r.f64()
		if err != nil {
			return nil, err
		}
		objects[i] = types.GeoPointObject(lat, lng)
	}
	for i, rw := range rows {
		if rw.tag != types.TagString && rw.tag != types.TagDate && rw.tag != types.TagJSON && rw.tag != types.TagURL {
			continue
		}
		code, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if int(code) >= len(stringDict) {
			return nil, errCorrupt("gcol: string dictionary code out of range")
		}
		s := stringDict[code]
		switch rw.tag {
		case types.TagString:
			objects[i] = types.StringObject(s)
		case types.TagDate:
			objects[i] = types.DateObject(s)
		case types.TagJSON:
			objects[i] = types.JSONObject(s)
		case types.TagURL:
			objects[i] = types.URLObject(s)
		}
	}
	for i, rw := range rows {
		if rw.tag != types.TagRef {
			continue
		}
		code, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if int(code) >= len(refDict) {
			return nil, errCorrupt("gcol: ref dictionary code out of range")
		}
		objects[i] = types.RefObject(types.EntityId(refDict[code]))
	}
	for i, rw := range rows {
		if rw.tag != types.TagRefArray {
			continue
		}
		n, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		refs := make([]types.EntityId, n)
		for j := range refs {
			code, err := r.uvarint()
			if err != nil {
				return nil, err
			}
			if int(code) >= len(refDict) {
				return nil, errCorrupt("gcol: ref dictionary code out of range")
			}
			refs[j] = types.EntityId(refDict[code])
		}
		objects[i] = types.RefArrayObject(refs)
	}
	for i, rw := range rows {
		if rw.tag != types.TagTimestamp {
			continue
		}
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		objects[i] = types.TimestampObject(time.Unix(0, int64(v)).UTC())
	}

	for i, rw := range rows {
		if rw.tag == types.TagNull {
			objects[i] = types.NullObject()
		}
	}

	return objects, nil
}
