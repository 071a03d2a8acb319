package document

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	textMarginPt     = 72
	headlineFontSize = 64
	bodyFontSize     = 30
	headlineLineHt   = 76
	bodyLineHt       = 40
	textBandTopPt    = 920
)

// Placeholder slate color for pages whose image could not be drawn.
var placeholderFill = [3]int{38, 50, 66}

func newCarouselPDF(title string) *fpdf.Fpdf {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pageWidthPt, Ht: pageHeightPt},
	})
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	return pdf
}

func embedImage(pdf *fpdf.Fpdf, pageNumber int, data []byte, imageType string) error {
	name := fmt.Sprintf("slide-%d", pageNumber)
	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("failed to register image: %w", err)
	}

	pdf.ImageOptions(name, 0, 0, pageWidthPt, pageHeightPt, false, opts, 0, "")
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("failed to draw image: %w", err)
	}
	return nil
}

func drawPlaceholder(pdf *fpdf.Fpdf) {
	pdf.SetFillColor(placeholderFill[0], placeholderFill[1], placeholderFill[2])
	pdf.Rect(0, 0, pageWidthPt, pageHeightPt, "F")
}

// drawSlideText composites the headline and body over the lower third of
// the page. Text lives here rather than in the image prompt.
func drawSlideText(pdf *fpdf.Fpdf, slide Slide) {
	// Scrim behind the text keeps it legible over busy images.
	pdf.SetAlpha(0.55, "Normal")
	pdf.SetFillColor(0, 0, 0)
	pdf.Rect(0, textBandTopPt, pageWidthPt, pageHeightPt-textBandTopPt, "F")
	pdf.SetAlpha(1.0, "Normal")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", headlineFontSize)
	pdf.SetXY(textMarginPt, textBandTopPt+36)
	pdf.MultiCell(pageWidthPt-2*textMarginPt, headlineLineHt, slide.HeadlineText, "", "L", false)

	if slide.BodyText != "" {
		pdf.SetFont("Helvetica", "", bodyFontSize)
		pdf.SetTextColor(220, 225, 232)
		pdf.SetXY(textMarginPt, pdf.GetY()+16)
		pdf.MultiCell(pageWidthPt-2*textMarginPt, bodyLineHt, slide.BodyText, "", "L", false)
	}
}
