package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for event data.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Numbers use the shortest round-trip form, integers without exponent
//
// The encoding is for snapshots and display. Equality checks use
// EqualityKey, which does not normalize strings.
func MarshalCanonical(v any) ([]byte, error) {
	w := canonicalWriter{nfc: true}
	if err := w.write(v); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// EqualityKey encodes v like MarshalCanonical but keeps strings
// byte-for-byte. Two values are structurally equal exactly when their
// keys are equal: map order is ignored and 1 equals 1.0, but "café"
// written precomposed differs from "cafe" plus a combining accent.
func EqualityKey(v any) ([]byte, error) {
	var w canonicalWriter
	if err := w.write(v); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// DataEqual reports whether two event data maps are structurally equal.
// Nil and empty maps are equal. Values that cannot be canonicalized
// (NaN, unsupported Go types) never compare equal.
func DataEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	ca, err := EqualityKey(a)
	if err != nil {
		return false
	}
	cb, err := EqualityKey(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// ValueEqual reports whether two data values are structurally equal,
// so 1 (int) equals 1.0 (float64).
func ValueEqual(a, b any) bool {
	ca, err := EqualityKey(a)
	if err != nil {
		return false
	}
	cb, err := EqualityKey(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

type canonicalWriter struct {
	buf bytes.Buffer
	nfc bool
}

func (w *canonicalWriter) write(v any) error {
	buf := &w.buf
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		w.writeString(val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		return writeCanonicalNumber(buf, val)
	case float32:
		return writeCanonicalNumber(buf, float64(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", val, err)
		}
		return writeCanonicalNumber(buf, f)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := w.write(elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range SortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			w.writeString(k)
			buf.WriteByte(':')
			if err := w.write(val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalNumber writes integral values without a fraction or
// exponent up to 1e21, and everything else in shortest 'g' form.
func writeCanonicalNumber(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v", f)
	}
	if f == 0 {
		// Collapses -0 to 0.
		buf.WriteByte('0')
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// writeString writes a JSON string, NFC-normalized when w.nfc is set.
// Only quote, backslash and control characters (U+0000-U+001F) are escaped;
// U+2028 and U+2029 are written literally.
func (w *canonicalWriter) writeString(s string) {
	const hex = "0123456789abcdef"
	buf := &w.buf
	if w.nfc {
		s = norm.NFC.String(s)
	}
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[r>>4])
				buf.WriteByte(hex[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// SortedKeys returns the keys of m in UTF-16 code unit order.
// Go's default string ordering is UTF-8 byte order, which differs for
// characters outside the Basic Multilingual Plane.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
