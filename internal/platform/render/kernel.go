package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sections every document starts with, in this order.
const (
	SectionDocument  = "Información del documento"
	SectionPatient   = "Datos del paciente"
	SectionClinician = "Profesional tratante"

	mandatorySections = 3
)

// Patient is the identity block printed on every document.
type Patient struct {
	FullName       string
	DocumentType   string
	DocumentNumber string
	BirthDate      *time.Time
	Gender         string
	Phone          string
	Insurer        string
	InstitutionKey string
}

// Clinician is the issuing professional.
type Clinician struct {
	FullName     string
	Specialty    string
	License      string
	SignatureURL string
}

// Input is everything the kernel needs besides the type-specific sections.
type Input struct {
	Title     string
	Number    string
	IssuedAt  time.Time
	Patient   Patient
	Clinician Clinician
}

// BuildSections returns the optional sections of one document type. Empty
// sections are dropped by the kernel, so builders may return them freely.
type BuildSections func() []Section

// Renderer composes and encodes documents. It is safe for concurrent use.
type Renderer struct {
	brandings    *BrandingTable
	fetcher      ImageFetcher
	fetchTimeout time.Duration
	compress     bool
	logger       zerolog.Logger
}

type Option func(*Renderer)

// WithImageFetcher enables signature and logo images, each fetch bounded by timeout.
func WithImageFetcher(f ImageFetcher, timeout time.Duration) Option {
	return func(r *Renderer) {
		r.fetcher = f
		r.fetchTimeout = timeout
	}
}

// WithCompression toggles stream compression. Uncompressed output keeps text
// readable in the raw bytes.
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

func New(brandings *BrandingTable, opts ...Option) *Renderer {
	if brandings == nil {
		brandings = NewBrandingTable()
	}
	r := &Renderer{
		brandings:    brandings,
		fetchTimeout: 3 * time.Second,
		compress:     true,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compose assembles the document: the three mandatory sections, then every
// non-empty section from build, then the signature. Image fetch failures
// degrade to a document without the image. A malformed layout returns a
// *StructuralError.
func (r *Renderer) Compose(ctx context.Context, in Input, build BuildSections) (*Document, error) {
	branding := r.brandings.Lookup(in.Patient.InstitutionKey)

	doc := &Document{
		Title:    in.Title,
		Number:   in.Number,
		IssuedAt: in.IssuedAt,
		Branding: branding,
		Sections: mandatory(in, branding),
		Signature: Signature{
			Name:      in.Clinician.FullName,
			Specialty: in.Clinician.Specialty,
			License:   in.Clinician.License,
		},
	}

	if build != nil {
		for _, s := range build() {
			if s.Empty() {
				continue
			}
			if s.Kind == KindFields {
				s.Fields = nonBlank(s.Fields)
			}
			doc.Sections = append(doc.Sections, s)
		}
	}

	if err := validate(doc); err != nil {
		return nil, err
	}

	doc.Signature.Image = r.image(ctx, "signature", in.Clinician.SignatureURL)
	doc.Logo = r.image(ctx, "logo", branding.LogoURL)
	return doc, nil
}

// Render composes and encodes the document to PDF bytes.
func (r *Renderer) Render(ctx context.Context, in Input, build BuildSections) ([]byte, *Document, error) {
	doc, err := r.Compose(ctx, in, build)
	if err != nil {
		return nil, nil, err
	}
	data, err := Encode(doc, r.compress)
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}

func (r *Renderer) image(ctx context.Context, kind, url string) *Image {
	if r.fetcher == nil || strings.TrimSpace(url) == "" {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	data, err := r.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		r.logger.Warn().Err(err).Str("image", kind).Str("url", url).Msg("image unavailable, rendering without it")
		return nil
	}
	img := sniffImage(data)
	if img == nil {
		r.logger.Warn().Str("image", kind).Str("url", url).Msg("image format not supported, rendering without it")
	}
	return img
}

func mandatory(in Input, b Branding) []Section {
	identification := strings.TrimSpace(strings.TrimSpace(in.Patient.DocumentType) + " " + strings.TrimSpace(in.Patient.DocumentNumber))

	return []Section{
		Fields(SectionDocument,
			Field{"Documento", in.Title},
			Field{"Número", OrNotRecorded("Número", in.Number)},
			Field{"Fecha de expedición", FormatDate(in.IssuedAt)},
			Field{"Institución", b.Name},
		),
		Fields(SectionPatient,
			Field{"Nombre", OrNotRecorded("Nombre", in.Patient.FullName)},
			Field{"Identificación", OrNotRecorded("Identificación", identification)},
			Field{"Fecha de nacimiento", FormatOptionalDate("Fecha de nacimiento", in.Patient.BirthDate)},
			Field{"Sexo", OrNotRecorded("Sexo", in.Patient.Gender)},
			Field{"Aseguradora", OrNotRecorded("Aseguradora", in.Patient.Insurer)},
			Field{"Teléfono", OrNotRecorded("Teléfono", in.Patient.Phone)},
		),
		Fields(SectionClinician,
			Field{"Nombre", OrNotRecorded("Nombre", in.Clinician.FullName)},
			Field{"Especialidad", OrNotRecorded("Especialidad", in.Clinician.Specialty)},
			Field{"Registro profesional", OrNotRecorded("Registro profesional", in.Clinician.License)},
		),
	}
}

func nonBlank(fields []Field) []Field {
	out := fields[:0:0]
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

// sectionName identifies a section in error messages.
func sectionName(s Section, i int) string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("#%d", i)
}
