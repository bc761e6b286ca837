// Package report renders the competitor report and delivers it over Gmail
// SMTP as a multipart/alternative email with plain-text and HTML bodies.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/uclone1/yt-competitor-monitor/internal/analysis"
	"github.com/uclone1/yt-competitor-monitor/internal/config"
)

// ErrNotConfigured indicates the Gmail credentials required for sending are
// absent from the configuration.
var ErrNotConfigured = errors.New("email credentials not configured")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends run reports to the configured recipient.
type Mailer struct {
	cfg    config.EmailConfig
	log    *slog.Logger
	sendFn sendFunc
}

// NewMailer creates a Mailer for the given email configuration.
func NewMailer(cfg config.EmailConfig, log *slog.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		log:    log.With("component", "report_mailer"),
		sendFn: smtp.SendMail,
	}
}

// SendReport renders the report for the given channel results and emails it
// to the configured recipient. The summary paragraph is optional and shown
// above the channel sections when present. An empty result set still
// produces a baseline report so the recipient knows the run happened.
func (m *Mailer) SendReport(ctx context.Context, channels []analysis.ChannelReport, summary string, generatedAt time.Time) error {
	if !m.cfg.Enabled() {
		return ErrNotConfigured
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send aborted: %w", err)
	}

	data := newReportData(channels, summary, generatedAt)

	html, err := renderHTMLReport(data)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	msg, err := m.buildMessage(data, buildPlainReport(data), html)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.Address, m.cfg.AppPassword, m.cfg.SMTPHost)

	m.log.InfoContext(ctx, "Sending email report",
		"recipient", m.cfg.Recipient,
		"outperformers", data.TotalOutperformers)

	if err := m.sendFn(addr, auth, m.cfg.Address, []string{m.cfg.Recipient}, msg); err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && protoErr.Code == 535 {
			return fmt.Errorf("gmail rejected the credentials, use an app password rather than the account password: %w", err)
		}

		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.InfoContext(ctx, "Email report sent", "recipient", m.cfg.Recipient)

	return nil
}

// buildMessage assembles the multipart/alternative message. The plain-text
// part comes first so HTML-capable clients prefer the styled body.
func (m *Mailer) buildMessage(data reportData, plain, html string) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textPart, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(plain)); err != nil {
		return nil, err
	}

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=utf-8")
	htmlPart, err := writer.CreatePart(htmlHeader)
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(html)); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	subject := subjectLine(data.TotalOutperformers, data.Date)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.Address)
	fmt.Fprintf(&msg, "To: %s\r\n", m.cfg.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n", writer.Boundary())
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}
