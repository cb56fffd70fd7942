// Package types defines graphd's domain model: triples, typed
// object values, entity/predicate identifiers, transaction ids, and
// the namespace path transform that maps entity URLs onto blob-store
// and KV key prefixes.
//
// Every other package imports types rather than redefining these
// shapes; TypedObject in particular is a closed tagged union (see
// ObjectTag) so encode/decode paths can exhaustively switch over it
// and refuse unknown tags rather than coerce them.
package types
