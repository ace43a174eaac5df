package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Generator renders deep links as PNG QR codes, e.g. for a desktop visitor to
// scan the WhatsApp link with a phone.
type Generator struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewGenerator uses Low recovery so long pre-filled WhatsApp links still fit.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = 512
	}
	return &Generator{Size: size, Level: qrcode.Low}
}

func (g *Generator) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr: empty content")
	}
	png, err := qrcode.Encode(content, g.Level, g.Size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}
