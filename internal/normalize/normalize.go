// Package normalize unwraps the inconsistent payload shapes returned by the
// collaboration API. Collections arrive as T[], {data: T[]} or
// {data: {data: T[]}}, and individual items are sometimes wrapped again as
// {data: item}.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Collection extracts the element list from raw. The lookup order is the
// payload itself, then payload.data, then payload.data.data. Anything else
// yields an empty, non-nil slice. Each element is unwrapped once.
func Collection(raw json.RawMessage) []json.RawMessage {
	items, ok := asArray(raw)
	if !ok {
		items, ok = asArray(member(raw, "data"))
	}
	if !ok {
		items, ok = asArray(member(member(raw, "data"), "data"))
	}
	if !ok {
		return []json.RawMessage{}
	}

	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, unwrapItem(item))
	}
	return out
}

// Items decodes the normalized collection into a slice of T. A decode failure
// on any element is returned together with the elements decoded so far.
func Items[T any](raw json.RawMessage) ([]T, error) {
	elems := Collection(raw)
	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			return out, fmt.Errorf("decode element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Item unwraps a single {data: item} envelope one level. Payloads without a
// truthy data member are returned unchanged.
func Item(raw json.RawMessage) json.RawMessage {
	return unwrapItem(raw)
}

// Decode unwraps raw with Item and decodes the result into v.
func Decode(raw json.RawMessage, v any) error {
	item := Item(raw)
	if len(bytes.TrimSpace(item)) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(item, v)
}

func unwrapItem(item json.RawMessage) json.RawMessage {
	inner := member(item, "data")
	if truthy(inner) {
		return inner
	}
	return item
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, true
}

// member returns obj[key] when raw is a JSON object containing key.
func member(raw json.RawMessage, key string) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil
	}
	return obj[key]
}

// truthy mirrors the loose truthiness the API's consumers rely on: absent,
// null, false, 0 and "" do not count as a wrapped value.
func truthy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch string(trimmed) {
	case "null", "false", `""`:
		return false
	}
	if trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9') {
		var f float64
		if err := json.Unmarshal(trimmed, &f); err == nil && f == 0 {
			return false
		}
	}
	return true
}
