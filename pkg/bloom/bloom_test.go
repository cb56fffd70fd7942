package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	keys := make([]string, 1000)
	for i := range keys {
		keys[i] = fmt.Sprintf("entity-%d", i)
		f.AddString(keys[i])
	}
	for _, k := range keys {
		assert.True(t, f.MightContainString(k), "must never false-negative: %s", k)
	}
}

func TestFalsePositiveRateWithinBounds(t *testing.T) {
	const capacity = 5000
	const targetFPR = 0.01
	f := New(capacity, targetFPR)
	for i := 0; i < capacity; i++ {
		f.AddString(fmt.Sprintf("member-%d", i))
	}

	trials := 20000
	falsePositives := 0
	for i := 0; i < trials; i++ {
		if f.MightContainString(fmt.Sprintf("absent-%d", i)) {
			falsePositives++
		}
	}
	observed := float64(falsePositives) / float64(trials)
	assert.Less(t, observed, targetFPR*2, "observed FPR %.4f should be within 2x of target %.4f", observed, targetFPR)
}

func TestSerializeRoundTrip(t *testing.T) {
	f := New(100, 0.01)
	f.AddString("a")
	f.AddString("b")

	s := f.Serialize()
	g, err := Deserialize(s)
	require.NoError(t, err)

	assert.True(t, g.MightContainString("a"))
	assert.True(t, g.MightContainString("b"))
	assert.Equal(t, f.m, g.m)
	assert.Equal(t, f.k, g.k)
}

func TestMergeCombinesMembership(t *testing.T) {
	a := New(100, 0.01)
	a.AddString("only-in-a")
	b := New(100, 0.01)
	b.AddString("only-in-b")

	require.NoError(t, a.Merge(b))
	assert.True(t, a.MightContainString("only-in-a"))
	assert.True(t, a.MightContainString("only-in-b"))
}
