package documents

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var ErrBadTicketPayload = errors.New("ticket payload signature mismatch")

// TicketRenderer генерирует PDF-билеты на экскурсии с подписанным QR-кодом
type TicketRenderer struct {
	secret []byte
}

func NewTicketRenderer(secret string) *TicketRenderer {
	return &TicketRenderer{secret: []byte(secret)}
}

// Payload строка для QR-кода: code|tourID|participants|signature
func (r *TicketRenderer) Payload(b *models.Booking) string {
	data := fmt.Sprintf("%s|%d|%d", b.Code, b.TourID, b.Participants)
	return data + "|" + r.sign(data)
}

// Verify проверяет подпись QR-кода и возвращает код записи
func (r *TicketRenderer) Verify(payload string) (string, error) {
	idx := strings.LastIndex(payload, "|")
	if idx <= 0 {
		return "", ErrBadTicketPayload
	}
	data, sig := payload[:idx], payload[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(r.sign(data))) {
		return "", ErrBadTicketPayload
	}
	code, _, _ := strings.Cut(data, "|")
	return code, nil
}

func (r *TicketRenderer) sign(data string) string {
	h := hmac.New(sha256.New, r.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Render собирает PDF билета. holder - имя, напечатанное на билете.
func (r *TicketRenderer) Render(b *models.Booking, t *models.Tour, holder string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(r.Payload(b), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// стандартные шрифты в cp1252, переводим UTF-8 для испанских названий
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, tr("Entrada - Visita a la granja"), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	lines := []string{
		fmt.Sprintf("Tour: %s", t.Name),
		fmt.Sprintf("Fecha: %s %s", t.Date.Format("02/01/2006"), t.Time),
		fmt.Sprintf("Guía: %s", t.Guide),
		fmt.Sprintf("Duración: %d min", t.Duration),
		fmt.Sprintf("Titular: %s", holder),
		fmt.Sprintf("Participantes: %d", b.Participants),
		fmt.Sprintf("Total: %s EUR", b.TotalPrice.StringFixed(2)),
		fmt.Sprintf("Código: %s", b.Code),
	}
	for _, line := range lines {
		pdf.Cell(0, 10, tr(line))
		pdf.Ln(8)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 10, tr("Presenta este código QR a la entrada."), "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
