package service

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"receiptly/internal/apperr"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

const (
	// Vision models degrade past this edge length, so pages are downscaled
	// before encoding.
	maxPageDimension = 1536
	jpegQuality      = 95
)

// RasterService turns a stored upload into the ordered JPEG page images the
// vision model consumes. PDFs are rendered page by page with go-fitz; plain
// images become a single page.
type RasterService struct {
	logger *zap.Logger
}

func NewRasterService(logger *zap.Logger) *RasterService {
	return &RasterService{logger: logger}
}

func (s *RasterService) Render(filePath string) ([][]byte, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return s.renderPDF(filePath)
	case ".png", ".jpg", ".jpeg":
		return s.renderImage(filePath)
	default:
		return nil, apperr.InvalidInput(fmt.Sprintf("unsupported file type %s", ext))
	}
}

func (s *RasterService) renderPDF(filePath string) ([][]byte, error) {
	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("failed to render PDF page %d: %w", i+1, err)
		}

		encoded, err := encodePage(img)
		if err != nil {
			return nil, fmt.Errorf("failed to encode PDF page %d: %w", i+1, err)
		}
		pages = append(pages, encoded)
	}

	s.logger.Debug("Rendered PDF",
		zap.String("file", filePath),
		zap.Int("pages", len(pages)),
	)

	return pages, nil
}

func (s *RasterService) renderImage(filePath string) ([][]byte, error) {
	img, err := imaging.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	encoded, err := encodePage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return [][]byte{encoded}, nil
}

// encodePage downscales a page so neither dimension exceeds maxPageDimension
// and encodes it as JPEG.
func encodePage(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() > maxPageDimension || bounds.Dy() > maxPageDimension {
		img = imaging.Fit(img, maxPageDimension, maxPageDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
