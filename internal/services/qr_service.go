package services

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	qrcode "github.com/skip2/go-qrcode"
)

type QRService struct {
	cfg *config.Config
}

func NewQRService(cfg *config.Config) *QRService { return &QRService{cfg: cfg} }

// GenerateShareQRPNG renders a share link's public URL as a QR PNG
func (s *QRService) GenerateShareQRPNG(link *models.ShareLink) ([]byte, error) {
	shareURL := fmt.Sprintf("%s/s/%s", s.cfg.FrontendURL, link.Slug)
	return qrcode.Encode(shareURL, qrcode.Medium, 512)
}

// GenerateShareQRPDF generates a simple A4 PDF with the playlist title and
// a QR code for the share link, suitable for printing or attaching to a
// pitch deck.
func (s *QRService) GenerateShareQRPDF(link *models.ShareLink, playlistTitle string) ([]byte, error) {
	shareURL := fmt.Sprintf("%s/s/%s", s.cfg.FrontendURL, link.Slug)

	png, err := qrcode.Encode(shareURL, qrcode.Medium, 512)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, playlistTitle)
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	label := link.Label
	if label == "" {
		label = link.Slug
	}
	pdf.MultiCell(0, 6, fmt.Sprintf("Share: %s\nURL: %s", label, shareURL), "", "L", false)

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", opt, bytes.NewReader(png))

	// Center QR on the page (A4 width 210mm, QR size 100mm)
	x := (210.0 - 100.0) / 2.0
	y := pdf.GetY() + 10
	pdf.ImageOptions("qr", x, y, 100, 100, false, opt, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
