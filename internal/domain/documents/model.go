package documents

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentType is one of the seven issued clinical document kinds.
type DocumentType string

const (
	TypeClinicalNote              DocumentType = "clinical_note"
	TypePrescription              DocumentType = "prescription"
	TypeDisabilityCertificate     DocumentType = "disability_certificate"
	TypeLabOrder                  DocumentType = "lab_order"
	TypeDiagnosticAidOrder        DocumentType = "diagnostic_aid_order"
	TypeReferralRequest           DocumentType = "referral_request"
	TypeTherapeuticSupportRequest DocumentType = "therapeutic_support_request"
)

type typeInfo struct {
	folder string
	title  string
	prefix string
}

var typeInfos = map[DocumentType]typeInfo{
	TypeClinicalNote:              {"clinical-notes", "Nota clínica", "NC"},
	TypePrescription:              {"prescriptions", "Fórmula médica", "FM"},
	TypeDisabilityCertificate:     {"disability-certificates", "Certificado de incapacidad", "CI"},
	TypeLabOrder:                  {"lab-orders", "Orden de laboratorio", "OL"},
	TypeDiagnosticAidOrder:        {"diagnostic-aid-orders", "Orden de ayudas diagnósticas", "AD"},
	TypeReferralRequest:           {"referrals", "Solicitud de remisión", "RM"},
	TypeTherapeuticSupportRequest: {"therapeutic-support", "Solicitud de apoyo terapéutico", "AT"},
}

// AllTypes lists the document types in a fixed order.
func AllTypes() []DocumentType {
	return []DocumentType{
		TypeClinicalNote,
		TypePrescription,
		TypeDisabilityCertificate,
		TypeLabOrder,
		TypeDiagnosticAidOrder,
		TypeReferralRequest,
		TypeTherapeuticSupportRequest,
	}
}

func (t DocumentType) Valid() bool {
	_, ok := typeInfos[t]
	return ok
}

// Folder is both the API path segment and the artifact folder of the type.
func (t DocumentType) Folder() string { return typeInfos[t].folder }

// Title is printed at the top of the artifact.
func (t DocumentType) Title() string { return typeInfos[t].title }

// TypeFromFolder maps an API path segment back to its document type.
func TypeFromFolder(folder string) (DocumentType, bool) {
	for t, info := range typeInfos {
		if info.folder == folder {
			return t, true
		}
	}
	return "", false
}

// ArtifactPath is the storage key of a record's artifact.
func ArtifactPath(patientID uuid.UUID, t DocumentType, recordID uuid.UUID) string {
	return fmt.Sprintf("patients/%s/%s/%s.pdf", patientID, t.Folder(), recordID)
}

// Record is a persisted clinical document. At most one exists per encounter
// and type, and ArtifactURL is set at most once.
type Record struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	DocumentType DocumentType    `db:"document_type" json:"document_type"`
	EncounterID  uuid.UUID       `db:"encounter_id" json:"encounter_id"`
	PatientID    uuid.UUID       `db:"patient_id" json:"patient_id"`
	ClinicianID  uuid.UUID       `db:"clinician_id" json:"clinician_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	ArtifactURL  *string         `db:"artifact_url" json:"artifact_url"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Number is the human-readable document number printed on the artifact.
func (r *Record) Number() string {
	id := strings.ReplaceAll(r.ID.String(), "-", "")
	return typeInfos[r.DocumentType].prefix + "-" + strings.ToUpper(id[:10])
}

// ArtifactPath is the storage key of the record's artifact.
func (r *Record) ArtifactPath() string {
	return ArtifactPath(r.PatientID, r.DocumentType, r.ID)
}

// HasArtifact reports whether an artifact URL has been attached.
func (r *Record) HasArtifact() bool {
	return r.ArtifactURL != nil && *r.ArtifactURL != ""
}
