package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/skip2/go-qrcode"
	"github.com/terraincognita07/shrine/internal/models"
)

const (
	DefaultShrineName = "Kaya's Village Shrine"
	DefaultQRCodeSize = 256
	maxQRCodeSize     = 1024
)

func ShareText(slip models.FortuneSlip, shrineName string) string {
	shrineName = strings.TrimSpace(shrineName)
	if shrineName == "" {
		shrineName = DefaultShrineName
	}
	return fmt.Sprintf(
		"My Fortune for %s: %s\n\"%s\"\n\nVisit %s to reveal yours.",
		slip.Month,
		slip.Level.Name(),
		slip.Poem,
		shrineName,
	)
}

// ShareQRCode renders a PNG QR code pointing at the shrine.
func ShareQRCode(url string, size int) ([]byte, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fieldError("url", ErrValidation)
	}
	if size <= 0 {
		size = DefaultQRCodeSize
	}
	if size > maxQRCodeSize {
		size = maxQRCodeSize
	}

	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode share qr code: %w", err)
	}
	return png, nil
}

type SlipExport struct {
	Filename string
	Body     []byte
}

type slipExportDocument struct {
	Fortune    models.FortuneSlip `json:"fortune"`
	LevelName  string             `json:"levelName"`
	Kanji      string             `json:"kanji"`
	ExportedAt string             `json:"exportedAt"`
}

// ExportSlip builds the downloadable keepsake of a revealed slip.
func ExportSlip(slip models.FortuneSlip, now time.Time) (SlipExport, error) {
	body, err := json.MarshalIndent(slipExportDocument{
		Fortune:    slip,
		LevelName:  slip.Level.Name(),
		Kanji:      slip.Level.Kanji(),
		ExportedAt: now.UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return SlipExport{}, fmt.Errorf("encode slip export: %w", err)
	}

	return SlipExport{
		Filename: fmt.Sprintf("fortune-%s-%d.json", slip.Month, now.UnixMilli()),
		Body:     body,
	}, nil
}
