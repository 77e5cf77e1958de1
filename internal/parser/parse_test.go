package parser

import (
	"bytes"
	"testing"
)

func noPlugins(typ []byte) bool { return false }

func TestParse_Counter(t *testing.T) {
	rec, ok, _ := Parse([]byte("foo:1|c"), noPlugins)
	if !ok {
		t.Fatal("expected accept")
	}
	if string(rec.Key) != "foo" || string(rec.Type) != "c" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	rate, ok := ParseRate(rec.Fields)
	if !ok || rate != 1 {
		t.Fatalf("expected default rate 1, got %v ok=%v", rate, ok)
	}
}

func TestParse_CounterWithRate(t *testing.T) {
	rec, ok, _ := Parse([]byte("foo:10|c|@0.1"), noPlugins)
	if !ok {
		t.Fatal("expected accept")
	}
	rate, ok := ParseRate(rec.Fields)
	if !ok || rate != 0.1 {
		t.Fatalf("expected rate 0.1, got %v ok=%v", rate, ok)
	}
}

func TestParse_RejectsNoColon(t *testing.T) {
	_, ok, reason := Parse([]byte("bad line no colon"), noPlugins)
	if ok {
		t.Fatal("expected reject")
	}
	if reason != MalformedPayload {
		t.Fatalf("expected MalformedPayload, got %v", reason)
	}
}

func TestParse_RejectsNoPipe(t *testing.T) {
	_, ok, reason := Parse([]byte("foo:1"), noPlugins)
	if ok || reason != MalformedPayload {
		t.Fatalf("expected MalformedPayload reject, got ok=%v reason=%v", ok, reason)
	}
}

func TestParse_RejectsTooManyFields(t *testing.T) {
	_, ok, reason := Parse([]byte("foo:1|c|@0.1|extra"), noPlugins)
	if ok || reason != MalformedPayload {
		t.Fatalf("expected MalformedPayload reject, got ok=%v reason=%v", ok, reason)
	}
}

func TestParse_RejectsBadRate(t *testing.T) {
	_, ok, reason := Parse([]byte("foo:1|c|x0.1"), noPlugins)
	if ok || reason != MalformedPayload {
		t.Fatalf("expected MalformedPayload reject, got ok=%v reason=%v", ok, reason)
	}
}

// A third field is only validated as a rate suffix for counters; for
// every other built-in type it's accepted and simply ignored by the
// aggregator, matching processor.py's process() which dispatches on
// field count alone and never inspects fields[2] for non-counters.
func TestParse_NonCounterThirdFieldIgnored(t *testing.T) {
	rec, ok, _ := Parse([]byte("foo:1|g|@0.5"), noPlugins)
	if !ok {
		t.Fatal("expected accept")
	}
	if string(rec.Type) != "g" {
		t.Fatalf("unexpected type: %q", rec.Type)
	}

	rec, ok, _ = Parse([]byte("foo:5|ms|@1"), noPlugins)
	if !ok {
		t.Fatal("expected accept")
	}
	if string(rec.Type) != "ms" {
		t.Fatalf("unexpected type: %q", rec.Type)
	}
}

func TestParse_UnknownType(t *testing.T) {
	_, ok, reason := Parse([]byte("foo:1|zz"), noPlugins)
	if ok || reason != UnknownMetricType {
		t.Fatalf("expected UnknownMetricType reject, got ok=%v reason=%v", ok, reason)
	}
}

func TestParse_PluginType(t *testing.T) {
	isPlugin := func(typ []byte) bool { return string(typ) == "h" }
	rec, ok, _ := Parse([]byte("foo:1|h"), isPlugin)
	if !ok || string(rec.Type) != "h" {
		t.Fatalf("expected plugin accept, got ok=%v rec=%+v", ok, rec)
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"foo bar":       "foo_bar",
		"foo//bar":      "foo-bar",
		"foo!@#bar":     "foobar",
		"already.fine-_1": "already.fine-_1",
	}
	for in, want := range cases {
		got := NormalizeKey([]byte(in))
		if string(got) != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	in := []byte("weird /// key  with\tspaces!!")
	once := NormalizeKey(in)
	twice := NormalizeKey(once)
	if !bytes.Equal(once, twice) {
		t.Fatalf("normalize not idempotent: %q vs %q", once, twice)
	}
}
