package idscout

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// OwnerlessJoinable matches lookup bodies describing a group with no owner
// that anyone may join:
//
//	{"owner": null, "publicEntryAllowed": true, ...}
//
// The owner key must be present; a missing key is not the same as null.
var OwnerlessJoinable Predicate = AllOf(
	JSONFieldNull("owner"),
	JSONFieldEquals("publicEntryAllowed", true),
)

// JSONFieldNull returns a [Predicate] that matches when the field at path
// is present and explicitly null.
//
// The path uses dot notation to navigate nested objects, e.g. "data.owner".
// A body that is not a JSON object is an error.
func JSONFieldNull(path string) Predicate {
	parts := strings.Split(path, ".")

	return func(body []byte) (bool, error) {
		data, err := decodeObject(body)
		if err != nil {
			return false, err
		}
		value, ok := lookupJSONPath(data, parts)
		return ok && value == nil, nil
	}
}

// JSONFieldEquals returns a [Predicate] that matches when the field at path
// equals want after JSON normalization, so numbers compare by value
// regardless of Go type.
//
// Example:
//
//	pred := idscout.JSONFieldEquals("publicEntryAllowed", true)
//	pred = idscout.JSONFieldEquals("memberCount", 0)
func JSONFieldEquals(path string, want any) Predicate {
	parts := strings.Split(path, ".")
	normalized, normErr := normalizeJSON(want)

	return func(body []byte) (bool, error) {
		if normErr != nil {
			return false, normErr
		}
		data, err := decodeObject(body)
		if err != nil {
			return false, err
		}
		value, ok := lookupJSONPath(data, parts)
		if !ok {
			return false, nil
		}
		return reflect.DeepEqual(value, normalized), nil
	}
}

// AllOf returns a [Predicate] that matches when every predicate matches.
// Evaluation stops at the first non-match or error. AllOf with no
// predicates matches everything.
func AllOf(preds ...Predicate) Predicate {
	return func(body []byte) (bool, error) {
		for _, p := range preds {
			ok, err := p(body)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// AnyOf returns a [Predicate] that matches when at least one predicate
// matches. An error from any predicate is returned only if none matched.
func AnyOf(preds ...Predicate) Predicate {
	return func(body []byte) (bool, error) {
		var firstErr error
		for _, p := range preds {
			ok, err := p(body)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				return true, nil
			}
		}
		return false, firstErr
	}
}

func decodeObject(body []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decoding lookup body: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("decoding lookup body: not a JSON object")
	}
	return data, nil
}

// lookupJSONPath walks a decoded JSON object using dot notation parts.
// The bool reports whether the final key exists.
func lookupJSONPath(data map[string]any, parts []string) (any, bool) {
	var current any = data

	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// normalizeJSON round-trips v through JSON so it compares equal to decoded
// values.
func normalizeJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding comparison value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding comparison value: %w", err)
	}
	return out, nil
}
