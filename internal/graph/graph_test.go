package graph

import (
	"reflect"
	"testing"
)

func TestRecordAccessors(t *testing.T) {
	r := Record{
		"name":       "Kỹ thuật",
		"headcount":  int64(12),
		"ratio":      0.5,
		"skills":     []any{"Go", 7, "SQL"},
		"properties": map[string]any{"key": "value"},
	}

	if got := r.String("name"); got != "Kỹ thuật" {
		t.Errorf("String = %q", got)
	}
	if got := r.String("missing"); got != "" {
		t.Errorf("String missing = %q, want empty", got)
	}
	if got := r.Int("headcount"); got != 12 {
		t.Errorf("Int = %d", got)
	}
	if got := r.Int("ratio"); got != 0 {
		t.Errorf("Int from float = %d, want truncated 0", got)
	}
	if got := r.Float("ratio"); got != 0.5 {
		t.Errorf("Float = %v", got)
	}
	if got := r.StringList("skills"); !reflect.DeepEqual(got, []string{"Go", "SQL"}) {
		t.Errorf("StringList = %v, want non-strings skipped", got)
	}
	if got := r.StringList("name"); got != nil {
		t.Errorf("StringList on scalar = %v, want nil", got)
	}
	if got := r.Map("properties"); got["key"] != "value" {
		t.Errorf("Map = %v", got)
	}
}

func TestRecordNumericCoercion(t *testing.T) {
	r := Record{"a": 3, "b": int64(4), "c": 2.9}

	if r.Int("a") != 3 || r.Int("b") != 4 || r.Int("c") != 2 {
		t.Errorf("Int coercion: a=%d b=%d c=%d", r.Int("a"), r.Int("b"), r.Int("c"))
	}
	if r.Float("a") != 3 || r.Float("b") != 4 {
		t.Errorf("Float coercion: a=%v b=%v", r.Float("a"), r.Float("b"))
	}
}
