// Package document assembles the carousel's publishable document: one
// fixed-size page per slide with the generated raster embedded full-bleed
// and the slide text composited on top.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	// Page geometry matches the generated 4:5 vertical rasters.
	pageWidthPt  = 1080
	pageHeightPt = 1350

	imageFetchTimeout = 30 * time.Second
	maxImageBytes     = 20 << 20
)

// Slide is one page's worth of input for document assembly.
type Slide struct {
	PageNumber   int
	HeadlineText string
	BodyText     string
	ImageURL     string
}

// Generator renders slides into a single PDF document.
type Generator struct {
	httpClient *http.Client
}

func NewGenerator() *Generator {
	return &Generator{
		httpClient: &http.Client{Timeout: imageFetchTimeout},
	}
}

// Build renders one page per slide and returns the serialized document.
// A failed image fetch degrades that page to a placeholder; it never
// aborts the whole document.
func (g *Generator) Build(ctx context.Context, title string, slides []Slide) ([]byte, error) {
	if len(slides) == 0 {
		return nil, fmt.Errorf("cannot build document with zero slides")
	}

	pdf := newCarouselPDF(title)

	for _, slide := range slides {
		pdf.AddPage()

		drawn := false
		if slide.ImageURL != "" {
			imageBytes, imageType, err := g.fetchImage(ctx, slide.ImageURL)
			if err != nil {
				log.Printf("WARN (DocumentGenerator): Falling back to placeholder for page %d: %v", slide.PageNumber, err)
			} else if err := embedImage(pdf, slide.PageNumber, imageBytes, imageType); err != nil {
				log.Printf("WARN (DocumentGenerator): Failed to embed image for page %d: %v", slide.PageNumber, err)
			} else {
				drawn = true
			}
		}
		if !drawn {
			drawPlaceholder(pdf)
		}

		drawSlideText(pdf, slide)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

// fetchImage downloads the raster and sniffs its format.
func (g *Generator) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image fetch returned empty body")
	}

	imageType, err := sniffImageType(data)
	if err != nil {
		return nil, "", err
	}
	return data, imageType, nil
}

func sniffImageType(data []byte) (string, error) {
	switch http.DetectContentType(data) {
	case "image/png":
		return "PNG", nil
	case "image/jpeg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image content type %q", http.DetectContentType(data))
	}
}
