package canon_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/docvault/docvault/internal/canon"
)

func TestCanonicalize_keyOrderIndependent(t *testing.T) {
	a := canon.Record{"name": "report.pdf", "size": 100, "type": "pdf"}
	b := canon.Record{"type": "pdf", "name": "report.pdf", "size": 100}

	ca, err := canon.Canonicalize(a)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := canon.Canonicalize(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ca, cb) {
		t.Errorf("canonical forms differ:\n%s\n%s", ca, cb)
	}
}

func TestCanonicalize_numericSourcesConverge(t *testing.T) {
	// The same logical value arriving as int, float64, or a decimal-precision
	// json.Number must hash identically.
	variants := []canon.Record{
		{"file_size": 100},
		{"file_size": float64(100)},
		{"file_size": json.Number("100")},
		{"file_size": int64(100)},
		{"file_size": uint32(100)},
	}

	first, err := canon.Canonicalize(variants[0])
	if err != nil {
		t.Fatal(err)
	}
	for i, rec := range variants[1:] {
		c, err := canon.Canonicalize(rec)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, c) {
			t.Errorf("variant %d: got %s, want %s", i+1, c, first)
		}
	}
}

func TestCanonicalize_nestedStructures(t *testing.T) {
	rec := canon.Record{
		"tags": []any{"legal", "2024"},
		"meta": map[string]any{"pages": json.Number("42"), "draft": false},
	}
	c1, err := canon.Canonicalize(rec)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := canon.Canonicalize(canon.Record{
		"meta": map[string]any{"draft": false, "pages": 42},
		"tags": []any{"legal", "2024"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c1, c2) {
		t.Errorf("nested canonical forms differ:\n%s\n%s", c1, c2)
	}
}

func TestCanonicalize_permissiveRetry(t *testing.T) {
	// A typed struct is not directly encodable; the permissive JSON
	// round-trip must rescue it.
	type extra struct {
		Pages int `json:"pages"`
	}
	rec := canon.Record{"document_id": "doc-1", "extra": extra{Pages: 3}}

	c, err := canon.Canonicalize(rec)
	if err != nil {
		t.Fatalf("expected permissive encoder to handle struct field: %v", err)
	}
	if len(c) == 0 {
		t.Error("empty canonical form")
	}
}

func TestCanonicalize_unsupportedType(t *testing.T) {
	rec := canon.Record{"bad": make(chan int)}
	if _, err := canon.Canonicalize(rec); err == nil {
		t.Error("expected error for non-serializable field")
	}
}

func TestFixedWidth(t *testing.T) {
	short := canon.FixedWidth("doc-1", 32)
	if len(short) != 32 {
		t.Fatalf("got %d bytes, want 32", len(short))
	}
	if string(short[:5]) != "doc-1" {
		t.Errorf("short identifier not preserved: %q", short[:5])
	}
	for _, b := range short[5:] {
		if b != 0 {
			t.Error("padding bytes must be zero")
			break
		}
	}

	long := canon.FixedWidth("this-identifier-is-well-over-thirty-two-bytes-long", 32)
	if len(long) != 32 {
		t.Fatalf("got %d bytes, want 32", len(long))
	}
	if bytes.Equal(long[:5], []byte("this-")) {
		t.Error("long identifier must be digested, not truncated")
	}
}

func TestHashesEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"abc123", "abc123", true},
		{"0xABC123", "abc123", true},
		{"0xabc123", "0xABC123", true},
		{" abc123 ", "abc123", true},
		{"abc123", "abc124", false},
		{"", "abc123", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := canon.HashesEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("HashesEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSanitize_preservesNonNumeric(t *testing.T) {
	rec := canon.SanitizeRecord(canon.Record{
		"name": "x.pdf",
		"ok":   true,
		"size": 10,
	})
	if rec["name"] != "x.pdf" || rec["ok"] != true {
		t.Error("non-numeric scalars must pass through unchanged")
	}
	if _, isFloat := rec["size"].(float64); !isFloat {
		t.Errorf("numeric field not normalized to float64: %T", rec["size"])
	}
}
