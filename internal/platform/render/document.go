// Package render turns the structured content of a clinical document into a
// paginated PDF. Every document type shares the same kernel: a fixed head of
// mandatory sections followed by the type's optional sections, of which only
// the non-empty ones are kept.
package render

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SectionKind selects how a section is laid out.
type SectionKind int

const (
	KindFields SectionKind = iota + 1
	KindTable
	KindText
)

func (k SectionKind) String() string {
	switch k {
	case KindFields:
		return "fields"
	case KindTable:
		return "table"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("SectionKind(%d)", int(k))
	}
}

// Field is one label/value line of a fields section.
type Field struct {
	Label string
	Value string
}

// Section is one titled block of a document.
type Section struct {
	Kind   SectionKind
	Title  string
	Fields []Field
	Table  *Table
	Text   string
}

// Table is a grid whose columns come from the policy of its TableKind.
type Table struct {
	Kind TableKind
	Rows [][]string
}

// Empty reports whether the section has nothing to show.
func (s Section) Empty() bool {
	switch s.Kind {
	case KindFields:
		for _, f := range s.Fields {
			if strings.TrimSpace(f.Value) != "" {
				return false
			}
		}
		return true
	case KindTable:
		return s.Table == nil || len(s.Table.Rows) == 0
	case KindText:
		return strings.TrimSpace(s.Text) == ""
	default:
		return false
	}
}

// Fields builds a fields section.
func Fields(title string, fields ...Field) Section {
	return Section{Kind: KindFields, Title: title, Fields: fields}
}

// TableSection builds a table section.
func TableSection(title string, kind TableKind, rows [][]string) Section {
	return Section{Kind: KindTable, Title: title, Table: &Table{Kind: kind, Rows: rows}}
}

// Text builds a narrative section.
func Text(title, body string) Section {
	return Section{Kind: KindText, Title: title, Text: body}
}

// Image is a decoded-enough image ready for embedding: Type is "PNG" or "JPG".
type Image struct {
	Data []byte
	Type string
}

// Signature closes the document.
type Signature struct {
	Name      string
	Specialty string
	License   string
	Image     *Image
}

// Document is the composed, layout-independent content of an artifact.
type Document struct {
	Title     string
	Number    string
	IssuedAt  time.Time
	Branding  Branding
	Logo      *Image
	Sections  []Section
	Signature Signature
}

// SectionTitles lists the section titles in order.
func (d *Document) SectionTitles() []string {
	titles := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		titles[i] = s.Title
	}
	return titles
}

// text flattens every visible value of the document, one per line, in render
// order.
func (d *Document) text() string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(d.Branding.Name)
	line(d.Title)
	for _, s := range d.Sections {
		line(s.Title)
		switch s.Kind {
		case KindFields:
			for _, f := range s.Fields {
				line(f.Label + ": " + f.Value)
			}
		case KindTable:
			for _, c := range s.Table.Kind.Columns() {
				line(c.Header)
			}
			for _, row := range s.Table.Rows {
				line(strings.Join(row, " | "))
			}
		case KindText:
			line(s.Text)
		}
	}
	line(d.Signature.Name)
	line(d.Signature.Specialty)
	line(d.Signature.License)
	return b.String()
}

// StructuralError is a malformed layout: a programming defect, never a data
// problem.
type StructuralError struct {
	Section string
	Reason  string
}

func (e *StructuralError) Error() string {
	if e.Section == "" {
		return "render: " + e.Reason
	}
	return fmt.Sprintf("render: section %q: %s", e.Section, e.Reason)
}

func validate(d *Document) error {
	if len(d.Sections) < mandatorySections {
		return &StructuralError{Reason: fmt.Sprintf("expected at least %d sections, got %d", mandatorySections, len(d.Sections))}
	}
	for _, s := range d.Sections {
		if strings.TrimSpace(s.Title) == "" {
			return &StructuralError{Reason: "section without title"}
		}
		switch s.Kind {
		case KindFields, KindText:
		case KindTable:
			if s.Table == nil {
				return &StructuralError{Section: s.Title, Reason: "table section without table"}
			}
			cols := s.Table.Kind.Columns()
			if cols == nil {
				return &StructuralError{Section: s.Title, Reason: fmt.Sprintf("no column policy for %s", s.Table.Kind)}
			}
			if w := columnsWidth(cols); math.Abs(w-ContentWidth) > 0.01 {
				return &StructuralError{Section: s.Title, Reason: fmt.Sprintf("column widths sum to %.2fmm, want %.2fmm", w, ContentWidth)}
			}
			for i, row := range s.Table.Rows {
				if len(row) != len(cols) {
					return &StructuralError{Section: s.Title, Reason: fmt.Sprintf("row %d has %d cells, want %d", i, len(row), len(cols))}
				}
			}
		default:
			return &StructuralError{Section: s.Title, Reason: fmt.Sprintf("unknown section kind %s", s.Kind)}
		}
	}
	return nil
}
