package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/rbxstore/fulfillment-service/internal/config"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"gopkg.in/gomail.v2"
)

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<h2>Pembayaran diterima</h2>
<p>Order {{.CorrelationID}} via {{.Gateway}} telah lunas.</p>
<table>
{{range .Lines}}<tr><td>{{.InvoiceID}}</td><td>{{.Description}}</td><td>{{.Quantity}}</td><td>Rp {{.FinalAmount.StringFixed 0}}</td></tr>
{{end}}</table>
<p><b>Total: Rp {{.Total.StringFixed 0}}</b></p>`))

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.Mail) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) SendInvoice(_ context.Context, inv domain.Invoice) error {
	var body bytes.Buffer
	if err := invoiceTemplate.Execute(&body, inv); err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", inv.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Invoice %s", inv.CorrelationID))
	msg.SetBody("text/html", body.String())

	return m.dialer.DialAndSend(msg)
}

// LogMailer stands in when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) SendInvoice(_ context.Context, inv domain.Invoice) error {
	slog.Info("invoice email skipped, smtp not configured", "correlation_id", inv.CorrelationID, "lines", len(inv.Lines))
	return nil
}
