package lines

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedEmitsCompleteLines(t *testing.T) {
	r := New()
	got := r.Feed([]byte("alpha\nbeta\nparti"))
	assert.Equal(t, []string{"alpha", "beta"}, got)

	got = r.Feed([]byte("al\ngamma\n"))
	assert.Equal(t, []string{"partial", "gamma"}, got)
}

func TestFlushEmitsTrailingPartialLine(t *testing.T) {
	r := New()
	r.Feed([]byte("only-partial"))
	assert.Equal(t, []string{"only-partial"}, r.Flush())
}

func TestFlushOnEmptyBufferEmitsNothing(t *testing.T) {
	r := New()
	r.Feed([]byte("a\n"))
	assert.Nil(t, r.Flush())
}

func TestWhitespaceOnlyLinesAreFiltered(t *testing.T) {
	r := New()
	got := r.Feed([]byte("real\n   \n\t\nnext\n"))
	assert.Equal(t, []string{"real", "next"}, got)
}

func TestOverflowRetainsTail(t *testing.T) {
	r := New(WithMaxBufferSize(8))
	r.Feed([]byte("0123456789ABCDEF")) // 16 bytes, no newline
	assert.LessOrEqual(t, len(r.state.PartialLine), 8)
	assert.Equal(t, []byte("89ABCDEF"), r.state.PartialLine)
}

func TestStateRoundTrip(t *testing.T) {
	r := New()
	r.Feed([]byte("one\ntwo\npart"))
	snap := r.State()

	r2 := New()
	r2.RestoreState(snap)
	got := r2.Feed([]byte("ial\nthree\n"))
	assert.Equal(t, []string{"partial", "three"}, got)
	assert.Equal(t, uint64(4), r2.state.LinesEmitted)
}

// TestPartitionInvariance checks the reader's core contract: feeding
// the same input split at arbitrary byte boundaries yields the same
// set of lines as feeding it whole.
func TestPartitionInvariance(t *testing.T) {
	input := strings.Repeat("the quick brown fox\njumps over\n\nthe lazy dog\n", 50)

	whole := New()
	wantLines := whole.Feed([]byte(input))
	wantLines = append(wantLines, whole.Flush()...)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		r := New()
		var got []string
		pos := 0
		data := []byte(input)
		for pos < len(data) {
			n := 1 + rng.Intn(7)
			end := pos + n
			if end > len(data) {
				end = len(data)
			}
			got = append(got, r.Feed(data[pos:end])...)
			pos = end
		}
		got = append(got, r.Flush()...)
		require.Equal(t, wantLines, got, "trial %d", trial)
	}
}
