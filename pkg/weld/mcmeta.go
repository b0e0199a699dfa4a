package weld

import (
	"encoding/json"
	"maps"
)

// PackFormats holds the pack_format numbers of one game version
type PackFormats struct {
	Data     int `toml:"data" json:"data"`
	Resource int `toml:"resource" json:"resource"`
}

type formatTable map[string]PackFormats

var defaultPackFormats = formatTable{
	"1.19.4": {Data: 12, Resource: 13},
	"1.20":   {Data: 15, Resource: 15},
	"1.20.1": {Data: 15, Resource: 15},
	"1.20.2": {Data: 18, Resource: 18},
	"1.20.3": {Data: 26, Resource: 22},
	"1.20.4": {Data: 26, Resource: 22},
	"1.20.5": {Data: 41, Resource: 32},
	"1.20.6": {Data: 41, Resource: 32},
	"1.21":   {Data: 48, Resource: 34},
	"1.21.1": {Data: 48, Resource: 34},
	"1.21.2": {Data: 57, Resource: 42},
	"1.21.3": {Data: 57, Resource: 42},
	"1.21.4": {Data: 61, Resource: 46},
	"1.21.5": {Data: 71, Resource: 55},
}

func (t formatTable) with(overrides map[string]PackFormats) formatTable {
	merged := maps.Clone(t)
	maps.Copy(merged, overrides)
	return merged
}

func (t formatTable) lookup(version string, kind Kind) (int, bool) {
	f, ok := t[version]
	if !ok {
		return 0, false
	}
	if kind == KindDataPack {
		return f.Data, f.Data > 0
	}
	return f.Resource, f.Resource > 0
}

// Mcmeta is the content of a pack.mcmeta file
type Mcmeta struct {
	// Pack is the "pack" section
	Pack map[string]any
	// Sections holds every other top-level section (filter, overlays, ...)
	Sections map[string]any

	descriptionSet bool
}

func newMcmeta() *Mcmeta {
	return &Mcmeta{
		Pack:     map[string]any{},
		Sections: map[string]any{},
	}
}

func parseMcmeta(data []byte) (*Mcmeta, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	m := newMcmeta()
	for key, value := range raw {
		if key == "pack" {
			if section, ok := value.(map[string]any); ok {
				m.Pack = section
			}
			continue
		}
		m.Sections[key] = value
	}
	return m, nil
}

// PackFormat returns the pack_format value, or 0 when missing
func (m *Mcmeta) PackFormat() int {
	if v, ok := m.Pack["pack_format"].(float64); ok {
		return int(v)
	}
	if v, ok := m.Pack["pack_format"].(int); ok {
		return v
	}
	return 0
}

// Description returns the pack description, which may be a string or a
// text component.
func (m *Mcmeta) Description() any {
	return m.Pack["description"]
}

// merge folds other into m. The first description wins, pack_format keeps the
// highest value seen, other sections are replaced by later packs.
func (m *Mcmeta) merge(other *Mcmeta) {
	if desc, ok := other.Pack["description"]; ok && !m.descriptionSet {
		m.Pack["description"] = desc
		m.descriptionSet = true
	}

	if f := other.PackFormat(); f > m.PackFormat() {
		m.Pack["pack_format"] = f
	}

	for key, value := range other.Pack {
		if key == "description" || key == "pack_format" {
			continue
		}
		m.Pack[key] = value
	}

	maps.Copy(m.Sections, other.Sections)
}

func (m *Mcmeta) marshal() ([]byte, error) {
	out := make(map[string]any, len(m.Sections)+1)
	maps.Copy(out, m.Sections)
	out["pack"] = m.Pack
	return json.MarshalIndent(out, "", "  ")
}
