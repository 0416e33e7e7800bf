// Package canon canonicalizes semi-structured document records into a
// deterministic byte sequence and computes the SHA-256 digests that get
// anchored in the integrity ledger.
//
// Two structurally equal records always canonicalize to identical bytes,
// regardless of map key order or the numeric type the values arrived in.
// Numbers from decimal-precision stores are normalized to float64 before
// encoding so hashes are reproducible across storage backends.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Record is a document metadata snapshot: field name → scalar, list, or
// nested mapping.
type Record = map[string]any

// Sanitize recursively normalizes a value for hashing: every numeric kind
// collapses to float64, nested maps and lists are sanitized element-wise.
// Non-numeric scalars pass through unchanged.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}

// SanitizeRecord applies Sanitize to every field of a record.
func SanitizeRecord(rec Record) Record {
	return Sanitize(rec).(map[string]any)
}

// Canonicalize serializes a record with keys sorted lexicographically and a
// stable numeric representation. Fields the strict encoder cannot handle are
// retried through a permissive JSON round-trip; if that also fails the error
// indicates a caller contract violation (unsupported field type).
func Canonicalize(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, Sanitize(rec)); err == nil {
		return buf.Bytes(), nil
	}

	loose, err := looseDecode(rec)
	if err != nil {
		return nil, fmt.Errorf("canonicalize record: %w", err)
	}
	buf.Reset()
	if err := encodeValue(&buf, Sanitize(loose)); err != nil {
		return nil, fmt.Errorf("canonicalize record: %w", err)
	}
	return buf.Bytes(), nil
}

// looseDecode round-trips a value through encoding/json, collapsing exotic
// types (structs, typed maps, typed slices) into plain maps and slices.
func looseDecode(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	case float64:
		buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeValue(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unsupported field type %T", v)
	}
	return nil
}

// Digest computes the SHA-256 digest of b.
func Digest(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// DigestHex returns the hex-encoded SHA-256 digest of b.
func DigestHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashRecord canonicalizes rec and returns its raw SHA-256 digest.
func HashRecord(rec Record) ([32]byte, error) {
	b, err := Canonicalize(rec)
	if err != nil {
		return [32]byte{}, err
	}
	return Digest(b), nil
}

// FixedWidth converts a string into a fixed-size byte identifier for ledger
// fields. If the UTF-8 encoding exceeds width bytes the SHA-256 digest is
// returned instead; otherwise the bytes are zero-padded to width. Short and
// long identifiers are therefore not comparably distributed; preserved for
// wire compatibility with previously anchored data.
func FixedWidth(s string, width int) []byte {
	raw := []byte(s)
	if len(raw) > width {
		sum := sha256.Sum256(raw)
		return sum[:]
	}
	out := make([]byte, width)
	copy(out, raw)
	return out
}

// NormalizeHex lowercases a hash string and strips any "0x" prefix and
// surrounding whitespace. Ledger hash strings may or may not carry the
// prefix depending on where they were produced.
func NormalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "0x")
}

// HashesEqual reports whether two hash strings match after normalization.
func HashesEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizeHex(a) == NormalizeHex(b)
}
