package documents

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/clinicaldocs/internal/platform/render"
)

// Payload is the type-specific content of a document.
type Payload interface {
	// Validate checks required fields and normalizes the payload in place.
	Validate() error
	// Sections returns the optional artifact sections for the payload.
	Sections() []render.Section
}

func newPayload(t DocumentType) Payload {
	switch t {
	case TypeClinicalNote:
		return &ClinicalNotePayload{}
	case TypePrescription:
		return &PrescriptionPayload{}
	case TypeDisabilityCertificate:
		return &DisabilityCertificatePayload{}
	case TypeLabOrder:
		return &LabOrderPayload{}
	case TypeDiagnosticAidOrder:
		return &DiagnosticAidOrderPayload{}
	case TypeReferralRequest:
		return &ReferralRequestPayload{}
	case TypeTherapeuticSupportRequest:
		return &TherapeuticSupportPayload{}
	}
	return nil
}

// decodePayload unmarshals raw into the payload type of t without validating it.
func decodePayload(t DocumentType, raw json.RawMessage) (Payload, error) {
	p := newPayload(t)
	if p == nil {
		return nil, invalid("document_type", "unknown document type %q", t)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, invalid("payload", "malformed payload: %v", err)
	}
	return p, nil
}

// ParsePayload decodes, validates and normalizes a request payload.
func ParsePayload(t DocumentType, raw json.RawMessage) (Payload, error) {
	p, err := decodePayload(t, raw)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// -- Shared --

// Diagnosis is one coded diagnosis. Kind is free text such as
// "principal" or "relacionado".
type Diagnosis struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Kind        string `json:"kind,omitempty"`
}

// Diagnoses accepts a JSON array or a string holding a JSON array. Anything
// that cannot be read as a list decodes to an empty list.
type Diagnoses []Diagnosis

func (d *Diagnoses) UnmarshalJSON(b []byte) error {
	*d = ParseDiagnoses(b)
	return nil
}

// ParseDiagnoses is the parse-or-default reading of a diagnoses value.
// String elements are taken as descriptions; entries without code and
// description are dropped.
func ParseDiagnoses(raw []byte) Diagnoses {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Diagnoses{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Diagnoses{}
		}
		raw = bytes.TrimSpace([]byte(s))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return Diagnoses{}
	}

	out := Diagnoses{}
	for _, item := range items {
		var d Diagnosis
		var s string
		switch {
		case json.Unmarshal(item, &s) == nil:
			d.Description = s
		case json.Unmarshal(item, &d) == nil:
		default:
			continue
		}
		d.Code = strings.TrimSpace(d.Code)
		d.Description = strings.TrimSpace(d.Description)
		d.Kind = strings.TrimSpace(d.Kind)
		if d.Code == "" && d.Description == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func trim(ps ...*string) {
	for _, p := range ps {
		*p = strings.TrimSpace(*p)
	}
}

// -- ClinicalNote --

type ClinicalNotePayload struct {
	Reason         string    `json:"reason"`
	CurrentIllness string    `json:"current_illness,omitempty"`
	History        string    `json:"history,omitempty"`
	Diagnoses      Diagnoses `json:"diagnoses,omitempty"`
	Vitals         *Vitals   `json:"vitals,omitempty"`
	PhysicalExam   string    `json:"physical_exam,omitempty"`
	Plan           string    `json:"plan,omitempty"`
	Observations   string    `json:"observations,omitempty"`
}

func (p *ClinicalNotePayload) Validate() error {
	trim(&p.Reason, &p.CurrentIllness, &p.History, &p.PhysicalExam, &p.Plan, &p.Observations)
	if p.Vitals != nil && p.Vitals.Empty() {
		p.Vitals = nil
	}
	return required("payload.reason", p.Reason)
}

// Vitals holds the signs taken during the encounter. Numeric readings accept
// JSON numbers or numeric strings; anything else is treated as not recorded.
type Vitals struct {
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	HeartRate        *float64 `json:"heart_rate,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	Weight           *float64 `json:"weight,omitempty"`
	Height           *float64 `json:"height,omitempty"`
}

func (v *Vitals) UnmarshalJSON(b []byte) error {
	var raw struct {
		BloodPressure    json.RawMessage `json:"blood_pressure"`
		HeartRate        json.RawMessage `json:"heart_rate"`
		RespiratoryRate  json.RawMessage `json:"respiratory_rate"`
		Temperature      json.RawMessage `json:"temperature"`
		OxygenSaturation json.RawMessage `json:"oxygen_saturation"`
		Weight           json.RawMessage `json:"weight"`
		Height           json.RawMessage `json:"height"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = Vitals{
		BloodPressure:    parseText(raw.BloodPressure),
		HeartRate:        parseReading(raw.HeartRate),
		RespiratoryRate:  parseReading(raw.RespiratoryRate),
		Temperature:      parseReading(raw.Temperature),
		OxygenSaturation: parseReading(raw.OxygenSaturation),
		Weight:           parseReading(raw.Weight),
		Height:           parseReading(raw.Height),
	}
	return nil
}

// Empty reports whether no sign was recorded.
func (v *Vitals) Empty() bool {
	return v == nil || (v.BloodPressure == "" && v.HeartRate == nil && v.RespiratoryRate == nil &&
		v.Temperature == nil && v.OxygenSaturation == nil && v.Weight == nil && v.Height == nil)
}

func parseReading(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

// -- Prescription --

type Medication struct {
	Name         string `json:"name"`
	Dose         string `json:"dose"`
	Frequency    string `json:"frequency"`
	Days         string `json:"days"`
	Route        string `json:"route,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type PrescriptionPayload struct {
	Medications     []Medication `json:"medications"`
	Diagnoses       Diagnoses    `json:"diagnoses,omitempty"`
	Recommendations string       `json:"recommendations,omitempty"`
}

func (p *PrescriptionPayload) Validate() error {
	trim(&p.Recommendations)
	if len(p.Medications) == 0 {
		return invalid("payload.medications", "at least one medication is required")
	}
	for i := range p.Medications {
		m := &p.Medications[i]
		trim(&m.Name, &m.Dose, &m.Frequency, &m.Days, &m.Route, &m.Instructions)
		if m.Name == "" {
			return invalid("payload.medications["+strconv.Itoa(i)+"].name", "is required")
		}
		if m.Dose == "" {
			return invalid("payload.medications["+strconv.Itoa(i)+"].dose", "is required")
		}
		if m.Frequency == "" {
			return invalid("payload.medications["+strconv.Itoa(i)+"].frequency", "is required")
		}
		if m.Days == "" {
			return invalid("payload.medications["+strconv.Itoa(i)+"].days", "is required")
		}
	}
	return nil
}

// -- DisabilityCertificate --

const dateLayout = "2006-01-02"

type DisabilityCertificatePayload struct {
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Days         int       `json:"days"`
	Reason       string    `json:"reason"`
	Diagnoses    Diagnoses `json:"diagnoses,omitempty"`
	Observations string    `json:"observations,omitempty"`
}

// Period returns the parsed start and end dates.
func (p *DisabilityCertificatePayload) Period() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, p.StartDate)
	if err != nil {
		return start, end, invalid("payload.start_date", "must be a date (YYYY-MM-DD)")
	}
	end, err = time.Parse(dateLayout, p.EndDate)
	if err != nil {
		return start, end, invalid("payload.end_date", "must be a date (YYYY-MM-DD)")
	}
	return start, end, nil
}

func (p *DisabilityCertificatePayload) Validate() error {
	trim(&p.StartDate, &p.EndDate, &p.Reason, &p.Observations)
	if err := required("payload.start_date", p.StartDate); err != nil {
		return err
	}
	if err := required("payload.end_date", p.EndDate); err != nil {
		return err
	}
	start, end, err := p.Period()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return invalid("payload.end_date", "must not be before start_date")
	}
	if err := required("payload.reason", p.Reason); err != nil {
		return err
	}
	p.Days = int(end.Sub(start).Hours()/24) + 1
	return nil
}

// -- LabOrder --

type Exam struct {
	Name  string `json:"name"`
	Code  string `json:"code,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type LabOrderPayload struct {
	Exams              []Exam    `json:"exams"`
	Diagnoses          Diagnoses `json:"diagnoses,omitempty"`
	ClinicalIndication string    `json:"clinical_indication,omitempty"`
	Priority           string    `json:"priority,omitempty"`
}

func (p *LabOrderPayload) Validate() error {
	trim(&p.ClinicalIndication, &p.Priority)
	if len(p.Exams) == 0 {
		return invalid("payload.exams", "at least one exam is required")
	}
	for i := range p.Exams {
		ex := &p.Exams[i]
		trim(&ex.Name, &ex.Code, &ex.Notes)
		if ex.Name == "" {
			return invalid("payload.exams["+strconv.Itoa(i)+"].name", "is required")
		}
	}
	return nil
}

// -- DiagnosticAidOrder --

type Study struct {
	Name       string `json:"name"`
	BodyRegion string `json:"body_region,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type DiagnosticAidOrderPayload struct {
	Studies       []Study   `json:"studies"`
	Diagnoses     Diagnoses `json:"diagnoses,omitempty"`
	Justification string    `json:"justification,omitempty"`
}

func (p *DiagnosticAidOrderPayload) Validate() error {
	trim(&p.Justification)
	if len(p.Studies) == 0 {
		return invalid("payload.studies", "at least one study is required")
	}
	for i := range p.Studies {
		st := &p.Studies[i]
		trim(&st.Name, &st.BodyRegion, &st.Notes)
		if st.Name == "" {
			return invalid("payload.studies["+strconv.Itoa(i)+"].name", "is required")
		}
	}
	return nil
}

// -- ReferralRequest --

type ReferralRequestPayload struct {
	Specialties     []string  `json:"specialties"`
	Reason          string    `json:"reason,omitempty"`
	Diagnoses       Diagnoses `json:"diagnoses,omitempty"`
	ClinicalSummary string    `json:"clinical_summary,omitempty"`
}

// Validate requires at least one non-blank specialty. Every entry is kept,
// repeats included: each one becomes its own referral encounter.
func (p *ReferralRequestPayload) Validate() error {
	trim(&p.Reason, &p.ClinicalSummary)
	if len(p.Specialties) == 0 {
		return invalid("payload.specialties", "at least one specialty is required")
	}
	for i := range p.Specialties {
		p.Specialties[i] = strings.TrimSpace(p.Specialties[i])
		if p.Specialties[i] == "" {
			return invalid("payload.specialties["+strconv.Itoa(i)+"]", "must not be blank")
		}
	}
	return nil
}

// -- TherapeuticSupportRequest --

type Therapy struct {
	Kind      string `json:"kind"`
	Sessions  int    `json:"sessions"`
	Frequency string `json:"frequency,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type TherapeuticSupportPayload struct {
	Therapies  []Therapy `json:"therapies"`
	Objectives string    `json:"objectives,omitempty"`
	Diagnoses  Diagnoses `json:"diagnoses,omitempty"`
}

func (p *TherapeuticSupportPayload) Validate() error {
	trim(&p.Objectives)
	if len(p.Therapies) == 0 {
		return invalid("payload.therapies", "at least one therapy is required")
	}
	for i := range p.Therapies {
		th := &p.Therapies[i]
		trim(&th.Kind, &th.Frequency, &th.Notes)
		if th.Kind == "" {
			return invalid("payload.therapies["+strconv.Itoa(i)+"].kind", "is required")
		}
		if th.Sessions < 1 {
			return invalid("payload.therapies["+strconv.Itoa(i)+"].sessions", "must be at least 1")
		}
	}
	return nil
}
