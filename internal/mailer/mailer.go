// Package mailer sends the portal's notification emails: password recovery,
// decision notices, contact relays and upload receipts. Delivery failures
// are logged and swallowed; an unreachable SMTP relay must never fail the
// request that triggered the email.
package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/vendor-portal/internal/backfill"
)

// logoToken is the placeholder the HTML templates embed where the inline
// logo image belongs.
const logoToken = "cid:portal_logo"

// Config holds SMTP relay settings.
type Config struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
	// RatePerMinute caps outbound sends; 0 uses a default of 30.
	RatePerMinute int `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// sendFunc matches smtp.SendMail; swapped out in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML email through an SMTP relay, rate limited so a burst of
// admin decisions cannot trip the relay's throttling.
type Mailer struct {
	cfg      Config
	logoPath string
	limiter  *rate.Limiter
	send     sendFunc
}

// New creates a Mailer. logoPath may be empty; emails then go out without
// the inline logo.
func New(cfg Config, logoPath string) *Mailer {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Mailer{
		cfg:      cfg,
		logoPath: logoPath,
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 5),
		send:     smtp.SendMail,
	}
}

// Enabled reports whether a relay is configured. Deployments without SMTP
// settings run fine; every send becomes a logged no-op.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// Send delivers one HTML email. Failures are logged, never returned: the
// caller's operation already succeeded and an email problem must not undo it.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) {
	if !m.Enabled() {
		zap.L().Debug("mailer: disabled, dropping email", zap.String("to", to), zap.String("subject", subject))
		return
	}
	if err := m.limiter.Wait(ctx); err != nil {
		zap.L().Warn("mailer: rate limiter wait aborted", zap.String("to", to), zap.Error(err))
		return
	}

	body := m.InlineLogo(htmlBody)
	msg := buildMessage(m.cfg.From, to, subject, body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		zap.L().Error("mailer: send failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	zap.L().Info("mailer: sent", zap.String("to", to), zap.String("subject", subject))
}

// InlineLogo replaces the logo placeholder with a base64 data URI when the
// logo file is readable; otherwise the placeholder is stripped so clients do
// not render a broken image.
func (m *Mailer) InlineLogo(body string) string {
	if !strings.Contains(body, logoToken) {
		return body
	}
	if m.logoPath != "" {
		if data, err := os.ReadFile(m.logoPath); err == nil && len(data) > 0 {
			uri := "data:" + backfill.GuessMIME(m.logoPath) + ";base64," + base64.StdEncoding.EncodeToString(data)
			return strings.ReplaceAll(body, logoToken, uri)
		}
	}
	return strings.ReplaceAll(body, logoToken, "")
}

// buildMessage assembles an RFC 5322 message with HTML content.
func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
