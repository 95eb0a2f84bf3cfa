package identity

import "testing"

func TestFullName(t *testing.T) {
	p := &Patient{FirstName: " Maria ", LastName: "Lopez"}
	if got := p.FullName(); got != "Maria Lopez" {
		t.Errorf("Patient.FullName() = %q", got)
	}

	c := &Clinician{FirstName: "Carlos"}
	if got := c.FullName(); got != "Carlos" {
		t.Errorf("Clinician.FullName() = %q", got)
	}
}

func TestDeref(t *testing.T) {
	if Deref(nil) != "" {
		t.Error("expected empty string for nil")
	}
	s := "F"
	if Deref(&s) != "F" {
		t.Error("expected pointed-to value")
	}
}
