package util

import (
	"encoding/json"
	"strconv"
	"strings"

	"carbonequip/internal"
)

// Resolve returns the text of the first key in keys that is present in rec
// with a usable value, or def when none resolves. A value is usable when it
// is a scalar whose trimmed text is not empty; nil, objects and arrays are
// skipped like missing keys.
func Resolve(rec internal.RawRecord, keys []string, def string) string {
	if v, ok := Lookup(rec, keys); ok {
		return v
	}
	return def
}

// Lookup is Resolve without a default; ok reports whether any key resolved.
func Lookup(rec internal.RawRecord, keys []string) (string, bool) {
	for _, key := range keys {
		raw, present := rec[key]
		if !present {
			continue
		}
		text, ok := ScalarText(raw)
		if !ok {
			continue
		}
		return text, true
	}
	return "", false
}

// ScalarText renders a decoded JSON scalar as trimmed text. Numbers keep
// their literal form when decoded as json.Number.
func ScalarText(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
