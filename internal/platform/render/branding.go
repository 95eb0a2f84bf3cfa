package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// DefaultBrandingKey is used for patients without a known institution.
const DefaultBrandingKey = "default"

// Branding is the letterhead of an institution.
type Branding struct {
	Key         string  `mapstructure:"key"`
	Name        string  `mapstructure:"name"`
	LogoURL     string  `mapstructure:"logo_url"`
	Website     string  `mapstructure:"website"`
	Address     string  `mapstructure:"address"`
	Phone       string  `mapstructure:"phone"`
	Email       string  `mapstructure:"email"`
	AccentColor string  `mapstructure:"accent_color"`
	LogoWidthMM float64 `mapstructure:"logo_width_mm"`
}

var builtinBrandings = []Branding{
	{
		Key:         DefaultBrandingKey,
		Name:        "Red Integrada de Servicios de Salud",
		AccentColor: "#1F4E79",
		LogoWidthMM: 28,
	},
}

// BrandingTable resolves institution keys to letterheads. It is read-only
// after construction.
type BrandingTable struct {
	entries map[string]Branding
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// NewBrandingTable starts from the built-in entries; later entries replace
// earlier ones with the same key.
func NewBrandingTable(entries ...Branding) *BrandingTable {
	t := &BrandingTable{entries: make(map[string]Branding)}
	for _, b := range builtinBrandings {
		t.entries[normalizeKey(b.Key)] = b
	}
	for _, b := range entries {
		b.Key = normalizeKey(b.Key)
		t.entries[b.Key] = b
	}
	return t
}

// LoadBrandingFile reads a YAML file of the form
//
//	institutions:
//	  - key: hospital-norte
//	    name: Hospital del Norte
//	    logo_url: https://cdn.example.org/norte.png
//
// and merges it over the built-in entries.
func LoadBrandingFile(path string) (*BrandingTable, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read branding file %s: %w", path, err)
	}

	var entries []Branding
	if err := v.UnmarshalKey("institutions", &entries); err != nil {
		return nil, fmt.Errorf("decode branding file %s: %w", path, err)
	}
	for i, b := range entries {
		if normalizeKey(b.Key) == "" {
			return nil, fmt.Errorf("branding file %s: entry %d has no key", path, i)
		}
		if strings.TrimSpace(b.Name) == "" {
			return nil, fmt.Errorf("branding file %s: entry %q has no name", path, b.Key)
		}
	}
	return NewBrandingTable(entries...), nil
}

// Lookup matches key case-insensitively, falling back to the default entry.
func (t *BrandingTable) Lookup(key string) Branding {
	if b, ok := t.entries[normalizeKey(key)]; ok {
		return b
	}
	return t.entries[DefaultBrandingKey]
}

// All returns the entries sorted by key.
func (t *BrandingTable) All() []Branding {
	out := make([]Branding, 0, len(t.entries))
	for _, b := range t.entries {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// accentRGB parses "#RRGGBB", falling back to a dark blue.
func (b Branding) accentRGB() (r, g, bl int) {
	var rr, gg, bb int
	if _, err := fmt.Sscanf(strings.TrimPrefix(b.AccentColor, "#"), "%02x%02x%02x", &rr, &gg, &bb); err != nil {
		return 31, 78, 121
	}
	return rr, gg, bb
}
