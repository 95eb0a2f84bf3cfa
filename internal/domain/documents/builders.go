package documents

import (
	"strconv"
	"time"

	"github.com/ehr/clinicaldocs/internal/platform/render"
)

// Section titles shared by several document types.
const (
	titleDiagnoses    = "Diagnósticos"
	titleObservations = "Observaciones"
)

func diagnosesSection(d Diagnoses) render.Section {
	rows := make([][]string, 0, len(d))
	for _, dx := range d {
		rows = append(rows, []string{dx.Code, dx.Description, dx.Kind})
	}
	return render.TableSection(titleDiagnoses, render.TableDiagnoses, rows)
}

func (p *ClinicalNotePayload) Sections() []render.Section {
	return []render.Section{
		render.Text("Motivo de consulta", p.Reason),
		render.Text("Enfermedad actual", p.CurrentIllness),
		render.Text("Antecedentes", p.History),
		vitalsSection(p.Vitals),
		render.Text("Examen físico", p.PhysicalExam),
		diagnosesSection(p.Diagnoses),
		render.Text("Plan de manejo", p.Plan),
		render.Text(titleObservations, p.Observations),
	}
}

// vitalsSection lists every sign once any was recorded; absent readings get
// the "not recorded" placeholder.
func vitalsSection(v *Vitals) render.Section {
	if v.Empty() {
		return render.TableSection("Signos vitales", render.TableVitals, nil)
	}
	row := func(label, value string) []string { return []string{label, value} }
	return render.TableSection("Signos vitales", render.TableVitals, [][]string{
		row("Presión arterial", render.OrNotRecorded("Presión arterial", withUnit(v.BloodPressure, "mmHg"))),
		row("Frecuencia cardiaca", render.Measure("Frecuencia cardiaca", v.HeartRate, "lpm")),
		row("Frecuencia respiratoria", render.Measure("Frecuencia respiratoria", v.RespiratoryRate, "rpm")),
		row("Temperatura", render.Measure("Temperatura", v.Temperature, "°C")),
		row("Saturación de oxígeno", render.Measure("Saturación de oxígeno", v.OxygenSaturation, "%")),
		row("Peso", render.Measure("Peso", v.Weight, "kg")),
		row("Talla", render.Measure("Talla", v.Height, "cm")),
	})
}

func withUnit(value, unit string) string {
	if value == "" {
		return ""
	}
	return value + " " + unit
}

func (p *PrescriptionPayload) Sections() []render.Section {
	rows := make([][]string, 0, len(p.Medications))
	for _, m := range p.Medications {
		rows = append(rows, []string{m.Name, m.Dose, m.Frequency, m.Days, m.Route, m.Instructions})
	}
	return []render.Section{
		diagnosesSection(p.Diagnoses),
		render.TableSection("Medicamentos", render.TableMedications, rows),
		render.Text("Recomendaciones", p.Recommendations),
	}
}

func (p *DisabilityCertificatePayload) Sections() []render.Section {
	var from, to, days string
	if start, end, err := p.Period(); err == nil {
		from = render.FormatDate(start)
		to = render.FormatDate(end)
		days = strconv.Itoa(int(end.Sub(start)/(24*time.Hour)) + 1)
	}
	return []render.Section{
		render.Fields("Periodo de incapacidad",
			render.Field{Label: "Desde", Value: from},
			render.Field{Label: "Hasta", Value: to},
			render.Field{Label: "Días", Value: days},
		),
		render.Text("Motivo", p.Reason),
		diagnosesSection(p.Diagnoses),
		render.Text(titleObservations, p.Observations),
	}
}

func (p *LabOrderPayload) Sections() []render.Section {
	rows := make([][]string, 0, len(p.Exams))
	for _, ex := range p.Exams {
		rows = append(rows, []string{ex.Code, ex.Name, ex.Notes})
	}
	return []render.Section{
		render.Fields("Datos de la orden", render.Field{Label: "Prioridad", Value: p.Priority}),
		render.Text("Indicación clínica", p.ClinicalIndication),
		diagnosesSection(p.Diagnoses),
		render.TableSection("Exámenes solicitados", render.TableExams, rows),
	}
}

func (p *DiagnosticAidOrderPayload) Sections() []render.Section {
	rows := make([][]string, 0, len(p.Studies))
	for _, st := range p.Studies {
		rows = append(rows, []string{st.Name, st.BodyRegion, st.Notes})
	}
	return []render.Section{
		diagnosesSection(p.Diagnoses),
		render.TableSection("Estudios solicitados", render.TableStudies, rows),
		render.Text("Justificación", p.Justification),
	}
}

func (p *ReferralRequestPayload) Sections() []render.Section {
	rows := make([][]string, 0, len(p.Specialties))
	for i, sp := range p.Specialties {
		rows = append(rows, []string{strconv.Itoa(i + 1), sp})
	}
	return []render.Section{
		render.TableSection("Especialidades de destino", render.TableSpecialties, rows),
		render.Text("Motivo de la remisión", p.Reason),
		diagnosesSection(p.Diagnoses),
		render.Text("Resumen clínico", p.ClinicalSummary),
	}
}

func (p *TherapeuticSupportPayload) Sections() []render.Section {
	rows := make([][]string, 0, len(p.Therapies))
	for _, th := range p.Therapies {
		rows = append(rows, []string{th.Kind, strconv.Itoa(th.Sessions), th.Frequency, th.Notes})
	}
	return []render.Section{
		render.TableSection("Terapias solicitadas", render.TableTherapies, rows),
		render.Text("Objetivos", p.Objectives),
		diagnosesSection(p.Diagnoses),
	}
}
