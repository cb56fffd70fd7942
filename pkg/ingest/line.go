package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/types"
)

// line is the on-the-wire JSON Lines record one import source line
// decodes into: a flat, type-tagged object value alongside the usual
// subject/predicate/timestamp columns.
type line struct {
	Subject   string          `json:"subject"`
	Predicate string          `json:"predicate"`
	Timestamp uint64          `json:"timestamp"`
	Object    lineObject      `json:"object"`
	TxId      json.RawMessage `json:"txId,omitempty"`
}

type lineObject struct {
	Type  string   `json:"type"`
	Str   string   `json:"str,omitempty"`
	Int64 int64    `json:"int,omitempty"`
	Float float64  `json:"float,omitempty"`
	Bool  bool     `json:"bool,omitempty"`
	Ref   string   `json:"ref,omitempty"`
	Refs  []string `json:"refs,omitempty"`
	Lat   float64  `json:"lat,omitempty"`
	Lng   float64  `json:"lng,omitempty"`
}

// ParseTripleLine decodes one JSON Lines record produced by an import
// source into a Triple. Malformed lines return CorruptFormat so a
// caller can choose to skip-and-log rather than abort the whole job.
func ParseTripleLine(raw []byte) (types.Triple, error) {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return types.Triple{}, graphdberr.Wrap(graphdberr.CodeCorruptFormat, "parse triple line", err)
	}
	if l.Subject == "" || l.Predicate == "" {
		return types.Triple{}, graphdberr.New(graphdberr.CodeCorruptFormat, "triple line missing subject/predicate")
	}

	obj, err := decodeLineObject(l.Object)
	if err != nil {
		return types.Triple{}, err
	}

	txID, err := types.NewTxId(timestampToTime(l.Timestamp))
	if err != nil {
		return types.Triple{}, graphdberr.Wrap(graphdberr.CodeCorruptFormat, "mint triple txid", err)
	}

	return types.Triple{
		Subject:   types.EntityId(l.Subject),
		Predicate: types.Predicate(l.Predicate),
		Object:    obj,
		Timestamp: l.Timestamp,
		TxId:      txID,
	}, nil
}

func decodeLineObject(o lineObject) (types.TypedObject, error) {
	switch o.Type {
	case "", "NULL":
		return types.NullObject(), nil
	case "BOOL":
		return types.BoolObject(o.Bool), nil
	case "INT64":
		return types.Int64Object(o.Int64), nil
	case "FLOAT64":
		return types.Float64Object(o.Float), nil
	case "STRING":
		return types.StringObject(o.Str), nil
	case "URL":
		return types.URLObject(o.Str), nil
	case "DATE":
		return types.DateObject(o.Str), nil
	case "JSON":
		return types.JSONObject(o.Str), nil
	case "REF":
		return types.RefObject(types.EntityId(o.Ref)), nil
	case "REF_ARRAY":
		refs := make([]types.EntityId, len(o.Refs))
		for i, r := range o.Refs {
			refs[i] = types.EntityId(r)
		}
		return types.RefArrayObject(refs), nil
	case "GEO_POINT":
		return types.GeoPointObject(o.Lat, o.Lng), nil
	case "TIMESTAMP":
		return types.TimestampObject(timestampToTime(uint64(o.Int64))), nil
	default:
		return types.TypedObject{}, graphdberr.New(graphdberr.CodeCorruptFormat, fmt.Sprintf("unknown object type %q", o.Type))
	}
}

func timestampToTime(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}
