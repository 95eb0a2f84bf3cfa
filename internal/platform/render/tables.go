package render

import "fmt"

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth    = 210.0
	MarginLeft   = 15.0
	MarginRight  = 15.0
	MarginTop    = 12.0
	MarginBottom = 18.0
	ContentWidth = PageWidth - MarginLeft - MarginRight
)

// TableKind names a table layout with a fixed column policy.
type TableKind int

const (
	TableDiagnoses TableKind = iota + 1
	TableMedications
	TableVitals
	TableExams
	TableStudies
	TableTherapies
	TableSpecialties
)

// Column is a header and a fixed width in millimetres.
type Column struct {
	Header string
	Width  float64
}

var columnPolicies = map[TableKind][]Column{
	TableDiagnoses: {
		{"Código", 30}, {"Descripción", 115}, {"Tipo", 35},
	},
	TableMedications: {
		{"Medicamento", 50}, {"Dosis", 25}, {"Frecuencia", 25}, {"Días", 15}, {"Vía", 20}, {"Indicaciones", 45},
	},
	TableVitals: {
		{"Signo vital", 90}, {"Valor", 90},
	},
	TableExams: {
		{"Código", 30}, {"Examen", 90}, {"Observaciones", 60},
	},
	TableStudies: {
		{"Estudio", 80}, {"Región", 40}, {"Observaciones", 60},
	},
	TableTherapies: {
		{"Terapia", 60}, {"Sesiones", 25}, {"Frecuencia", 35}, {"Observaciones", 60},
	},
	TableSpecialties: {
		{"#", 15}, {"Especialidad", 165},
	},
}

// Columns returns the column policy, or nil for an unknown kind.
func (k TableKind) Columns() []Column {
	return columnPolicies[k]
}

func (k TableKind) String() string {
	switch k {
	case TableDiagnoses:
		return "diagnoses"
	case TableMedications:
		return "medications"
	case TableVitals:
		return "vitals"
	case TableExams:
		return "exams"
	case TableStudies:
		return "studies"
	case TableTherapies:
		return "therapies"
	case TableSpecialties:
		return "specialties"
	default:
		return fmt.Sprintf("TableKind(%d)", int(k))
	}
}

func columnsWidth(cols []Column) float64 {
	var w float64
	for _, c := range cols {
		w += c.Width
	}
	return w
}
