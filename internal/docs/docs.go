// Package docs renders print-ready travel documents: booking vouchers for
// the traveller and invoices for the client's accounting.
package docs

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourdesk/internal/core"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DocumentData is everything a voucher or invoice template needs.
type DocumentData struct {
	Number   string
	IssuedAt time.Time
	Settings core.Settings
	Booking  core.Booking
	Client   core.Client
}

// Due is exposed to templates as a formatted outstanding amount.
func (d DocumentData) Due() core.Money {
	return d.Booking.Due()
}

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"money": func(m core.Money) string { return m.Display() },
		"date": func(d core.Date) string {
			if d.IsEmpty() {
				return ""
			}
			return d.Format("02 Jan 2006")
		},
		"datetime": func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
		"words":    AmountInWords,
	}

	t, err := template.New("docs").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse document templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Voucher renders the traveller-facing booking voucher.
func (r *Renderer) Voucher(w io.Writer, d DocumentData) error {
	if d.Number == "" {
		d.Number = NewVoucherNumber()
	}
	if d.IssuedAt.IsZero() {
		d.IssuedAt = time.Now()
	}
	if err := r.templates.ExecuteTemplate(w, "voucher.html", d); err != nil {
		return fmt.Errorf("render voucher: %w", err)
	}
	return nil
}

// Invoice renders the client-facing invoice with service lines and totals.
func (r *Renderer) Invoice(w io.Writer, d DocumentData) error {
	if d.Number == "" {
		d.Number = NewInvoiceNumber()
	}
	if d.IssuedAt.IsZero() {
		d.IssuedAt = time.Now()
	}
	if err := r.templates.ExecuteTemplate(w, "invoice.html", d); err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}
	return nil
}

func NewVoucherNumber() string {
	return "VCH-" + shortID()
}

func NewInvoiceNumber() string {
	return "INV-" + shortID()
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
