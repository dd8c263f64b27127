package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// rasterizer renders up to maxPages pages of a PDF as JPEG images and reports the total page count
type rasterizer func(content []byte, maxPages int) (pages [][]byte, total int, err error)

// textExtractor reads the embedded text layer of a PDF
type textExtractor func(content []byte) (string, error)

// rasterizePDF renders pages with mupdf
func rasterizePDF(content []byte, maxPages int) ([][]byte, int, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	limit := total
	if maxPages > 0 && limit > maxPages {
		limit = maxPages
	}

	pages := make([][]byte, 0, limit)
	for n := 0; n < limit; n++ {
		img, err := doc.ImageDPI(n, 150)
		if err != nil {
			return nil, total, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}
		encoded, err := encodeJPEG(img)
		if err != nil {
			return nil, total, fmt.Errorf("failed to encode page %d: %w", n+1, err)
		}
		pages = append(pages, encoded)
	}
	if len(pages) == 0 {
		return nil, total, fmt.Errorf("PDF has no pages")
	}
	return pages, total, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// extractPDFText returns the plain text layer; scanned PDFs yield an empty string
func extractPDFText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
