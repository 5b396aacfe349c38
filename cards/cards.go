// Package cards renders printable recipe cards.
package cards

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"mixmaster/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Render lays out one A5 card: title, description, ingredients, steps and a
// QR code pointing at link. An empty link leaves the QR code out.
func Render(d models.Drink, link string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(d.Name), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(100, 9, tr(d.Name), "", "L", false)
	if d.NameEn != "" && d.NameEn != d.Name {
		pdf.SetFont("Arial", "I", 11)
		pdf.MultiCell(100, 6, tr(d.NameEn), "", "L", false)
	}

	if link != "" {
		qrPNG, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr code: %w", err)
		}
		imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
		pdf.ImageOptions("qr", 113, 10, 25, 25, false, imageOpts, 0, "")
	}
	pdf.SetY(38)

	if meta := details(d); meta != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(meta), "", "L", false)
		pdf.Ln(2)
	}

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 5.5, tr(d.Description), "", "L", false)
	pdf.Ln(4)

	section(pdf, "Ingredients")
	pdf.SetFont("Arial", "", 11)
	for _, ing := range d.Ingredients {
		line := fmt.Sprintf("%s %s %s", strconv.FormatFloat(ing.Quantity, 'f', -1, 64), ing.Unit, ing.Ingredient)
		if ing.Optional {
			line += " (optional)"
		}
		pdf.MultiCell(0, 5.5, tr("- "+line), "", "L", false)
	}
	pdf.Ln(3)

	section(pdf, "Steps")
	pdf.SetFont("Arial", "", 11)
	for i, step := range d.Steps {
		pdf.MultiCell(0, 5.5, tr(fmt.Sprintf("%d. %s", i+1, step)), "", "L", false)
	}

	if len(d.Tips) > 0 {
		pdf.Ln(3)
		section(pdf, "Tips")
		pdf.SetFont("Arial", "I", 10)
		for _, tip := range d.Tips {
			pdf.MultiCell(0, 5, tr(tip), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render card: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 7, title)
	pdf.Ln(8)
}

func details(d models.Drink) string {
	var parts []string
	if d.Difficulty != "" {
		parts = append(parts, "Difficulty: "+d.Difficulty)
	}
	if d.AlcoholLevel != "" {
		parts = append(parts, "Alcohol: "+d.AlcoholLevel)
	}
	if d.PrepTime != nil {
		parts = append(parts, fmt.Sprintf("%d min", *d.PrepTime))
	}
	if d.Servings != nil {
		parts = append(parts, fmt.Sprintf("Serves %d", *d.Servings))
	}
	return strings.Join(parts, "  |  ")
}
