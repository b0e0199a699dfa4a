package weld

import (
	"bytes"
	"encoding/json"
	"strings"
)

type mergeFunc func(existing, incoming []byte) ([]byte, error)

// mergerFor returns the merge strategy for path, or nil when the later file
// simply replaces the earlier one.
func mergerFor(kind Kind, path string) mergeFunc {
	if !strings.HasSuffix(path, ".json") {
		return nil
	}

	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return nil
	}

	switch kind {
	case KindDataPack:
		// data/<namespace>/tags/<registry>/.../<name>.json
		if parts[0] == dataRoot && parts[2] == "tags" {
			return mergeTags
		}
	case KindResourcePack:
		if parts[0] != assetsRoot {
			return nil
		}
		// assets/<namespace>/lang/<locale>.json
		if parts[2] == "lang" && len(parts) == 4 {
			return mergeLang
		}
		// assets/<namespace>/models/item/<name>.json
		if len(parts) >= 5 && parts[2] == "models" && parts[3] == "item" {
			return mergeItemModel
		}
	}
	return nil
}

type tagFile struct {
	Replace bool              `json:"replace,omitempty"`
	Values  []json.RawMessage `json:"values"`
}

// mergeTags appends values of incoming to existing, skipping entries already
// present. A tag with "replace": true discards everything before it.
func mergeTags(existing, incoming []byte) ([]byte, error) {
	var base, next tagFile
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(incoming, &next); err != nil {
		return nil, err
	}

	if next.Replace {
		base = tagFile{Replace: true}
	}

	seen := make(map[string]struct{}, len(base.Values)+len(next.Values))
	values := make([]json.RawMessage, 0, len(base.Values)+len(next.Values))
	for _, v := range append(base.Values, next.Values...) {
		id, err := tagEntryID(v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		values = append(values, v)
	}

	return json.MarshalIndent(tagFile{Replace: base.Replace, Values: values}, "", "  ")
}

// tagEntryID returns the identifier of a tag value, which is either a plain
// string or an object with an "id" field.
func tagEntryID(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return obj.ID, nil
}

// mergeLang overlays translation keys, later keys win
func mergeLang(existing, incoming []byte) ([]byte, error) {
	var base, next map[string]json.RawMessage
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(incoming, &next); err != nil {
		return nil, err
	}
	if base == nil {
		base = map[string]json.RawMessage{}
	}

	for k, v := range next {
		base[k] = v
	}
	return json.MarshalIndent(base, "", "  ")
}

// mergeItemModel concatenates "overrides" of both models. Every other key is
// taken from incoming when present.
func mergeItemModel(existing, incoming []byte) ([]byte, error) {
	var base, next map[string]json.RawMessage
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(incoming, &next); err != nil {
		return nil, err
	}
	if base == nil {
		base = map[string]json.RawMessage{}
	}

	var overrides []json.RawMessage
	for _, model := range []map[string]json.RawMessage{base, next} {
		raw, ok := model["overrides"]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		overrides = append(overrides, list...)
	}

	for k, v := range next {
		base[k] = v
	}

	if len(overrides) > 0 {
		deduped, err := dedupeJSON(overrides)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(deduped)
		if err != nil {
			return nil, err
		}
		base["overrides"] = encoded
	}

	return json.MarshalIndent(base, "", "  ")
}

func dedupeJSON(values []json.RawMessage) ([]json.RawMessage, error) {
	seen := make(map[string]struct{}, len(values))
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, err
		}
		key := buf.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
