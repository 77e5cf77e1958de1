package aggregate

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestCounter_AccumulatesAndResets(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, nil, c.Update([]byte("foo"), [][]byte{[]byte("1"), []byte("c")}))
	assert.Equal(t, nil, c.Update([]byte("foo"), [][]byte{[]byte("2"), []byte("c")}))

	emissions := c.Flush(FlushParams{IntervalSeconds: 10, Timestamp: 1000})

	var statsFoo, countsFoo float64
	for _, e := range emissions {
		switch string(e.Name) {
		case "stats.foo":
			statsFoo = e.Value
		case "stats_counts.foo":
			countsFoo = e.Value
		}
	}
	assert.Equal(t, float64(3), countsFoo)
	assert.Equal(t, float64(0), statsFoo)

	// Flushing again must observe the reset.
	again := c.Flush(FlushParams{IntervalSeconds: 10, Timestamp: 1010})
	for _, e := range again {
		if string(e.Name) == "stats_counts.foo" {
			assert.Equal(t, float64(0), e.Value)
		}
	}
}

func TestCounter_SampleRate(t *testing.T) {
	c := NewCounter()
	err := c.Update([]byte("foo"), [][]byte{[]byte("10"), []byte("c"), []byte("@0.1")})
	assert.Equal(t, nil, err)

	emissions := c.Flush(FlushParams{IntervalSeconds: 10, Timestamp: 1000})
	for _, e := range emissions {
		if string(e.Name) == "stats_counts.foo" {
			assert.Equal(t, float64(100), e.Value)
		}
	}
}

func TestCounter_RejectsUnparseableValue(t *testing.T) {
	c := NewCounter()
	err := c.Update([]byte("foo"), [][]byte{[]byte("nope"), []byte("c")})
	if err == nil {
		t.Fatal("expected error for unparseable value")
	}
}

func TestCounter_RejectsZeroRate(t *testing.T) {
	c := NewCounter()
	err := c.Update([]byte("foo"), [][]byte{[]byte("1"), []byte("c"), []byte("@0")})
	if err == nil {
		t.Fatal("expected error for zero rate")
	}
}

// A rate above 1 is unusual but not malformed: processor.py computes
// value * (1/rate) unconditionally, with no magnitude check.
func TestCounter_AcceptsRateAboveOne(t *testing.T) {
	c := NewCounter()
	err := c.Update([]byte("foo"), [][]byte{[]byte("1"), []byte("c"), []byte("@2")})
	assert.Equal(t, nil, err)

	emissions := c.Flush(FlushParams{IntervalSeconds: 10, Timestamp: 1000})
	for _, e := range emissions {
		if string(e.Name) == "stats_counts.foo" {
			assert.Equal(t, float64(0.5), e.Value)
		}
	}
}

func TestCounter_FlushOrderIsInsertionOrder(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, nil, c.Update([]byte("zeta"), [][]byte{[]byte("1"), []byte("c")}))
	assert.Equal(t, nil, c.Update([]byte("alpha"), [][]byte{[]byte("1"), []byte("c")}))
	assert.Equal(t, nil, c.Update([]byte("mid"), [][]byte{[]byte("1"), []byte("c")}))

	var order []string
	for _, e := range c.Flush(FlushParams{IntervalSeconds: 10, Timestamp: 1000}) {
		if string(e.Name[:len(statsPrefix)]) == statsPrefix {
			order = append(order, string(e.Name[len(statsPrefix):]))
		}
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, order)
}
