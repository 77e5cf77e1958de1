package aggregate

import "testing"

func TestGauge_RetentionAcrossFlushes(t *testing.T) {
	g := NewGauge()
	if err := g.Update([]byte("g"), [][]byte{[]byte("42")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		emissions := g.Flush(FlushParams{Timestamp: int64(1000 + i)})
		if len(emissions) != 1 || emissions[0].Value != 42 {
			t.Fatalf("flush %d: expected single emission of 42, got %+v", i, emissions)
		}
		if string(emissions[0].Name) != "stats.gauge.g.value" {
			t.Fatalf("flush %d: unexpected name %q", i, emissions[0].Name)
		}
	}
}

func TestGauge_RejectsColonInValue(t *testing.T) {
	g := NewGauge()
	if err := g.Update([]byte("g"), [][]byte{[]byte("1:2")}); err == nil {
		t.Fatal("expected error for value containing ':'")
	}
}

func TestGauge_InsertionOrderPreserved(t *testing.T) {
	g := NewGauge()
	_ = g.Update([]byte("a"), [][]byte{[]byte("1")})
	_ = g.Update([]byte("b"), [][]byte{[]byte("2")})
	_ = g.Update([]byte("a"), [][]byte{[]byte("3")})

	emissions := g.Flush(FlushParams{Timestamp: 1000})
	want := []string{"stats.gauge.a.value", "stats.gauge.b.value", "stats.gauge.a.value"}
	if len(emissions) != len(want) {
		t.Fatalf("got %d emissions, want %d", len(emissions), len(want))
	}
	for i, name := range want {
		if string(emissions[i].Name) != name {
			t.Errorf("emission %d = %q, want %q", i, emissions[i].Name, name)
		}
	}
}
