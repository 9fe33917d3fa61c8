package media

import (
	"fmt"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer renders a page of a PDF on disk into a PNG on disk.
type Rasterizer interface {
	RenderPage(pdfPath, pngPath string, page int) error
}

// FitzRasterizer rasterizes via MuPDF
type FitzRasterizer struct{}

func (FitzRasterizer) RenderPage(pdfPath, pngPath string, page int) error {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return fmt.Errorf("page %d out of range (document has %d)", page, doc.NumPage())
	}

	img, err := doc.Image(page)
	if err != nil {
		return fmt.Errorf("render page %d: %w", page, err)
	}

	out, err := os.Create(pngPath)
	if err != nil {
		return err
	}

	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return out.Close()
}
