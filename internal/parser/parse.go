package parser

import (
	"bytes"
	"math"
	"strconv"
)

// RejectReason classifies why a payload was dropped, for logging only.
type RejectReason int

const (
	// MalformedPayload covers missing ":"/"|", wrong field count, or a
	// counter's bad "@rate" suffix.
	MalformedPayload RejectReason = iota
	// UnparseableValue covers a value field that isn't a finite decimal.
	UnparseableValue
	// UnknownMetricType covers a type tag that isn't built-in and isn't
	// registered by a plugin.
	UnknownMetricType
)

func (r RejectReason) String() string {
	switch r {
	case MalformedPayload:
		return "malformed payload"
	case UnparseableValue:
		return "unparseable value"
	case UnknownMetricType:
		return "unknown metric type"
	default:
		return "rejected"
	}
}

// Record is a parsed, normalized datagram ready for dispatch to an
// aggregator. Fields holds the raw "|"-separated fields after the key,
// i.e. Fields[0] is the value, Fields[1] is the type, and an optional
// Fields[2] carries "@<rate>".
type Record struct {
	Key    []byte
	Type   []byte
	Fields [][]byte
}

// KnownType reports whether typ is one of the four built-in metric
// types. Plugin types are checked separately by the caller, which owns
// the plugin registry.
func KnownType(typ []byte) bool {
	switch string(typ) {
	case "c", "ms", "g", "m":
		return true
	default:
		return false
	}
}

// Parse splits a single datagram payload into a Record, or reports why
// it was rejected. isPlugin is consulted for type tags that aren't one
// of the four built-ins, so the caller's plugin registry determines
// whether an unrecognized tag is a rejection or a dispatchable plugin
// type.
//
// Parse never looks at numeric fields for types it doesn't already
// know to be type-keyed (that's the aggregator's job); it only checks
// structural shape and, for counters, the optional rate suffix.
func Parse(payload []byte, isPlugin func(typ []byte) bool) (Record, bool, RejectReason) {
	colon := bytes.IndexByte(payload, ':')
	if colon < 0 {
		return Record{}, false, MalformedPayload
	}
	key := NormalizeKey(payload[:colon])
	rest := payload[colon+1:]

	if bytes.IndexByte(rest, '|') < 0 {
		return Record{}, false, MalformedPayload
	}

	fields := bytes.Split(rest, []byte("|"))
	if len(fields) < 2 || len(fields) > 3 {
		return Record{}, false, MalformedPayload
	}

	typ := fields[1]
	known := KnownType(typ)
	if !known && (isPlugin == nil || !isPlugin(typ)) {
		return Record{}, false, UnknownMetricType
	}

	if len(fields) == 3 && string(typ) == "c" && !isRate(fields[2]) {
		return Record{}, false, MalformedPayload
	}

	return Record{Key: key, Type: typ, Fields: fields}, true, 0
}

// isRate reports whether field matches "@[0-9.]+".
func isRate(field []byte) bool {
	if len(field) < 2 || field[0] != '@' {
		return false
	}
	for _, b := range field[1:] {
		if (b < '0' || b > '9') && b != '.' {
			return false
		}
	}
	return true
}

// ParseRate extracts the sampling rate from a counter's optional third
// field, defaulting to 1 when absent. The caller must have already
// validated the field via Parse.
func ParseRate(fields [][]byte) (float64, bool) {
	if len(fields) != 3 {
		return 1, true
	}
	rate, err := strconv.ParseFloat(string(fields[2][1:]), 64)
	if err != nil || rate == 0 {
		return 0, false
	}
	return rate, true
}

// ParseFloat parses a value field as a finite decimal float.
func ParseFloat(field []byte) (float64, bool) {
	if bytes.ContainsAny(field, "xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(field), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
