package render

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBrandingTable_Lookup(t *testing.T) {
	table := NewBrandingTable(Branding{Key: " Hospital-Norte ", Name: "Hospital del Norte"})

	if got := table.Lookup("hospital-norte").Name; got != "Hospital del Norte" {
		t.Errorf("expected exact match, got %q", got)
	}
	if got := table.Lookup("  HOSPITAL-NORTE").Name; got != "Hospital del Norte" {
		t.Errorf("expected case-insensitive match, got %q", got)
	}
	def := table.Lookup(DefaultBrandingKey)
	for _, key := range []string{"", "unknown", "hospital-sur"} {
		if got := table.Lookup(key); got.Key != def.Key {
			t.Errorf("Lookup(%q) = %q, want default", key, got.Key)
		}
	}
}

func TestBrandingTable_OverrideDefault(t *testing.T) {
	table := NewBrandingTable(Branding{Key: "default", Name: "Clínica Central"})
	if got := table.Lookup("missing").Name; got != "Clínica Central" {
		t.Errorf("expected overridden default, got %q", got)
	}
	if len(table.All()) != 1 {
		t.Errorf("expected a single entry, got %d", len(table.All()))
	}
}

func TestLoadBrandingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "branding.yaml")
	content := `institutions:
  - key: hospital-norte
    name: Hospital del Norte
    logo_url: https://cdn.example.org/norte.png
    accent_color: "#AA3300"
    logo_width_mm: 30
  - key: clinica-sur
    name: Clínica del Sur
    phone: "+57 1 555 0101"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	table, err := LoadBrandingFile(path)
	if err != nil {
		t.Fatalf("LoadBrandingFile() error: %v", err)
	}

	norte := table.Lookup("HOSPITAL-NORTE")
	if norte.Name != "Hospital del Norte" || norte.LogoWidthMM != 30 {
		t.Errorf("unexpected entry: %+v", norte)
	}
	if r, g, b := norte.accentRGB(); r != 0xAA || g != 0x33 || b != 0 {
		t.Errorf("unexpected accent %d,%d,%d", r, g, b)
	}
	if got := table.Lookup("clinica-sur").Phone; got != "+57 1 555 0101" {
		t.Errorf("unexpected phone %q", got)
	}
	if len(table.All()) != 3 {
		t.Errorf("expected default plus 2 entries, got %d", len(table.All()))
	}
}

func TestLoadBrandingFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "branding.yaml")
	if err := os.WriteFile(path, []byte("institutions:\n  - name: Sin clave\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadBrandingFile(path); err == nil {
		t.Error("expected error for entry without key")
	}
	if _, err := LoadBrandingFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAccentRGB_Fallback(t *testing.T) {
	if r, g, b := (Branding{AccentColor: "teal"}).accentRGB(); r != 31 || g != 78 || b != 121 {
		t.Errorf("expected fallback colour, got %d,%d,%d", r, g, b)
	}
}

func TestLoadBrandingFile_ShippedExample(t *testing.T) {
	table, err := LoadBrandingFile(filepath.Join("..", "..", "..", "configs", "branding.example.yaml"))
	if err != nil {
		t.Fatalf("LoadBrandingFile() error: %v", err)
	}

	norte := table.Lookup("hospital-norte")
	if norte.Name != "Hospital del Norte E.S.E." || norte.LogoURL == "" {
		t.Errorf("unexpected hospital-norte entry: %+v", norte)
	}
	if r, g, b := norte.accentRGB(); r != 0x0B || g != 0x6E || b != 0x4F {
		t.Errorf("accent = %d,%d,%d, want 11,110,79", r, g, b)
	}
	if got := table.Lookup("CLINICA-SUR").Name; got != "Clínica del Sur" {
		t.Errorf("clinica-sur = %q", got)
	}
	if got := table.Lookup("unknown").Key; got != DefaultBrandingKey {
		t.Errorf("unknown key resolved to %q, want default", got)
	}
	if n := len(table.All()); n != 3 {
		t.Errorf("expected 3 institutions, got %d", n)
	}
}
