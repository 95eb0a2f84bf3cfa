package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	lineHeight  = 5.0
	titleHeight = 7.0
	labelWidth  = 55.0
	fontFamily  = "Helvetica"
)

// Encode writes doc as a PDF. A document that fails validation or an fpdf
// error yields a *StructuralError.
func Encode(doc *Document, compress bool) ([]byte, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.IssuedAt.UTC())
	pdf.SetMargins(MarginLeft, MarginTop, MarginRight)
	pdf.SetAutoPageBreak(true, MarginBottom)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Signature.Name, true)
	pdf.SetCreator(doc.Branding.Name, true)

	logo := register(pdf, "logo", doc.Logo)
	signature := register(pdf, "signature", doc.Signature.Image)
	ar, ag, ab := doc.Branding.accentRGB()

	pdf.SetHeaderFunc(func() {
		x := MarginLeft
		if logo {
			w := doc.Branding.LogoWidthMM
			if w <= 0 {
				w = 28
			}
			pdf.ImageOptions("logo", MarginLeft, MarginTop, w, 0, false, fpdf.ImageOptions{ImageType: doc.Logo.Type}, 0, "")
			x += w + 4
		}
		pdf.SetXY(x, MarginTop)
		pdf.SetFont(fontFamily, "B", 13)
		pdf.SetTextColor(ar, ag, ab)
		pdf.CellFormat(0, 6, tr(doc.Branding.Name), "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 8)
		pdf.SetTextColor(80, 80, 80)
		for _, l := range []string{doc.Branding.Address, doc.Branding.Phone, doc.Branding.Email, doc.Branding.Website} {
			if l == "" {
				continue
			}
			pdf.SetX(x)
			pdf.CellFormat(0, 4, tr(l), "", 1, "L", false, 0, "")
		}
		pdf.SetY(MarginTop + 24)
		pdf.SetDrawColor(ar, ag, ab)
		pdf.Line(MarginLeft, pdf.GetY(), PageWidth-MarginRight, pdf.GetY())
		pdf.Ln(3)
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(110, 110, 110)
		footer := fmt.Sprintf("%s %s · Página %d de {nb}", doc.Title, doc.Number, pdf.PageNo())
		pdf.CellFormat(0, 5, tr(footer), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 15)
	pdf.SetTextColor(ar, ag, ab)
	pdf.CellFormat(0, 9, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)

	for i, s := range doc.Sections {
		sectionTitle(pdf, tr, s.Title, ar, ag, ab)
		switch s.Kind {
		case KindFields:
			fieldRows(pdf, tr, s.Fields)
		case KindTable:
			tableRows(pdf, tr, s.Table)
		case KindText:
			pdf.SetFont(fontFamily, "", 9)
			pdf.MultiCell(ContentWidth, lineHeight, tr(s.Text), "", "L", false)
		default:
			return nil, &StructuralError{Section: sectionName(s, i), Reason: fmt.Sprintf("unknown section kind %s", s.Kind)}
		}
		pdf.Ln(3)
	}

	signatureBlock(pdf, tr, doc.Signature, signature)

	if err := pdf.Error(); err != nil {
		return nil, &StructuralError{Reason: fmt.Sprintf("pdf: %v", err)}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &StructuralError{Reason: fmt.Sprintf("pdf output: %v", err)}
	}
	return buf.Bytes(), nil
}

// register embeds img under name. An image fpdf cannot parse is dropped and
// the error cleared so the document still renders.
func register(pdf *fpdf.Fpdf, name string, img *Image) bool {
	if img == nil {
		return false
	}
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: img.Type}, bytes.NewReader(img.Data))
	if pdf.Err() {
		pdf.ClearError()
		return false
	}
	return true
}

func sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string, r, g, b int) {
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+titleHeight+2*lineHeight > pageH-MarginBottom {
		pdf.AddPage()
	}
	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetFillColor(r, g, b)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(ContentWidth, titleHeight, tr(title), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
}

func fieldRows(pdf *fpdf.Fpdf, tr func(string) string, fields []Field) {
	for _, f := range fields {
		pdf.SetFont(fontFamily, "B", 9)
		pdf.CellFormat(labelWidth, lineHeight, tr(f.Label), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		pdf.MultiCell(ContentWidth-labelWidth, lineHeight, tr(f.Value), "", "L", false)
	}
}

func tableRows(pdf *fpdf.Fpdf, tr func(string) string, t *Table) {
	cols := t.Kind.Columns()

	pdf.SetFont(fontFamily, "B", 8)
	pdf.SetFillColor(235, 235, 235)
	for _, c := range cols {
		pdf.CellFormat(c.Width, lineHeight+1, tr(c.Header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 8)
	_, pageH := pdf.GetPageSize()
	for _, row := range t.Rows {
		lines := make([][][]byte, len(row))
		height := lineHeight
		for i, cell := range row {
			lines[i] = pdf.SplitLines([]byte(tr(cell)), cols[i].Width-2)
			if h := float64(len(lines[i])) * lineHeight; h > height {
				height = h
			}
		}

		x, y := pdf.GetXY()
		if y+height > pageH-MarginBottom {
			pdf.AddPage()
			x, y = pdf.GetXY()
		}
		for i, c := range cols {
			pdf.Rect(x, y, c.Width, height, "D")
			for j, l := range lines[i] {
				pdf.SetXY(x+1, y+float64(j)*lineHeight)
				pdf.CellFormat(c.Width-2, lineHeight, string(l), "", 0, "L", false, 0, "")
			}
			x += c.Width
		}
		pdf.SetXY(MarginLeft, y+height)
	}
}

func signatureBlock(pdf *fpdf.Fpdf, tr func(string) string, sig Signature, hasImage bool) {
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+45 > pageH-MarginBottom {
		pdf.AddPage()
	}
	pdf.Ln(8)

	if hasImage {
		pdf.ImageOptions("signature", MarginLeft, 0, 50, 0, true, fpdf.ImageOptions{ImageType: sig.Image.Type}, 0, "")
	} else {
		pdf.Ln(18)
	}

	y := pdf.GetY()
	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(MarginLeft, y, MarginLeft+70, y)
	pdf.Ln(1)

	pdf.SetFont(fontFamily, "B", 9)
	pdf.CellFormat(70, lineHeight, tr(sig.Name), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 8)
	if sig.Specialty != "" {
		pdf.CellFormat(70, lineHeight, tr(sig.Specialty), "", 1, "L", false, 0, "")
	}
	if sig.License != "" {
		pdf.CellFormat(70, lineHeight, tr("Registro profesional "+sig.License), "", 1, "L", false, 0, "")
	}
}
