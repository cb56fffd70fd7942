// Package lines implements a stateful, resumable UTF-8 line framer
// for streaming import sources: bytes arrive in arbitrary chunks and
// the Reader yields non-empty trimmed lines regardless of how those
// chunks are cut.
package lines

const defaultMaxBufferSize = 64 * 1024

// State is the snapshottable portion of a Reader's parsing position,
// durable enough to be embedded in an ingest checkpoint and restored
// later via Reader.RestoreState.
type State struct {
	BytesProcessed uint64
	LinesEmitted   uint64
	PartialLine    []byte
}

// Reader frames newline-delimited UTF-8 text arriving as a sequence of
// byte chunks into a sequence of lines. It is not safe for concurrent
// use; callers serialize Feed/Flush calls themselves (mirroring the
// single-writer discipline used elsewhere in this module).
type Reader struct {
	maxBufferSize int
	state         State
}

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithMaxBufferSize overrides the default 64 KiB partial-line cap.
func WithMaxBufferSize(n int) Option {
	return func(r *Reader) { r.maxBufferSize = n }
}

// New constructs a Reader with an empty parsing state.
func New(opts ...Option) *Reader {
	r := &Reader{maxBufferSize: defaultMaxBufferSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Feed appends chunk to the internal buffer and returns every
// complete, non-empty, trimmed line it now contains. Bytes after the
// final newline are retained as partial state for the next Feed or
// Flush call.
func (r *Reader) Feed(chunk []byte) []string {
	r.state.BytesProcessed += uint64(len(chunk))
	buf := append(r.state.PartialLine, chunk...)

	var lines []string
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] != '\n' {
			continue
		}
		if line, ok := trimLine(buf[start:i]); ok {
			lines = append(lines, line)
			r.state.LinesEmitted++
		}
		start = i + 1
	}

	remainder := buf[start:]
	if len(remainder) > r.maxBufferSize {
		remainder = remainder[len(remainder)-r.maxBufferSize:]
	}
	r.state.PartialLine = append([]byte(nil), remainder...)
	return lines
}

// Flush emits any buffered partial line (if non-empty once trimmed)
// and clears the buffer. Call once the underlying stream is
// exhausted: Feed(...)+Flush() over any chunk partitioning must equal
// a single whole-input Feed.
func (r *Reader) Flush() []string {
	line, ok := trimLine(r.state.PartialLine)
	r.state.PartialLine = nil
	if !ok {
		return nil
	}
	r.state.LinesEmitted++
	return []string{line}
}

// State returns a deep copy of the reader's current snapshottable
// state, suitable for persisting into a checkpoint.
func (r *Reader) State() State {
	return State{
		BytesProcessed: r.state.BytesProcessed,
		LinesEmitted:   r.state.LinesEmitted,
		PartialLine:    append([]byte(nil), r.state.PartialLine...),
	}
}

// RestoreState re-establishes the reader's parsing position exactly
// as it was when State was captured.
func (r *Reader) RestoreState(s State) {
	r.state = State{
		BytesProcessed: s.BytesProcessed,
		LinesEmitted:   s.LinesEmitted,
		PartialLine:    append([]byte(nil), s.PartialLine...),
	}
}

// trimLine strips a trailing '\r' (CRLF sources) and surrounding
// whitespace, reporting false for lines that are empty or
// whitespace-only so callers can filter them out.
func trimLine(b []byte) (string, bool) {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	if start == end {
		return "", false
	}
	return string(b[start:end]), true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\v' || b == '\f'
}
