// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/daily-digest/pkg/types"
)

// ErrMailerNotConfigured is returned by Send without an SMTP host or
// recipient.
var ErrMailerNotConfigured = errors.New("smtp is not configured")

// Mailer sends reports over SMTP.
type Mailer struct {
	cfg types.ReportConfig

	// SendMail delivers the message; tests replace it.
	SendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	Now      func() time.Time
}

// NewMailer returns a mailer for cfg.
func NewMailer(cfg types.ReportConfig) *Mailer {
	return &Mailer{cfg: cfg, SendMail: smtp.SendMail, Now: time.Now}
}

// Configured reports whether Send can deliver.
func (m *Mailer) Configured() bool { return m.cfg.Configured() }

// Send mails body with the given subject to every configured recipient.
func (m *Mailer) Send(subject, body string) error {
	if !m.cfg.Configured() {
		return ErrMailerNotConfigured
	}
	port := m.cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(m.cfg.SMTPHost, strconv.Itoa(port))

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}
	from := m.cfg.From
	if from == "" {
		from = m.cfg.SMTPUser
	}
	to := recipients(m.cfg.To)

	if err := m.SendMail(addr, auth, from, to, m.message(from, to, subject, body)); err != nil {
		return fmt.Errorf("sending report to %s: %w", addr, err)
	}
	return nil
}

func (m *Mailer) message(from string, to []string, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}

func recipients(list string) []string {
	var out []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
