package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"upravdom/internal/logs"
)

// Sender — отправка одного письма (text + опциональный html).
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

type SMTPSender struct {
	Host    string
	Port    int
	From    string
	User    string
	Pass    string
	TLSMode string // "auto" | "starttls" | "ssl" | "none"
}

func NewSMTPSender(host string, port int, from, user, pass, tlsMode string) *SMTPSender {
	if tlsMode == "" {
		tlsMode = "auto"
	}
	return &SMTPSender{Host: host, Port: port, From: from, User: user, Pass: pass, TLSMode: tlsMode}
}

func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// multipart/alternative: text + html, если есть оба
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = nil
	default:
		// "auto"/"starttls": go-mail сам договорится о STARTTLS
	}

	if err := d.DialAndSend(m); err != nil {
		logs.Logger.Errorf("smtp send to=%s subject=%q: %v", to, subject, err)
		return fmt.Errorf("smtp send: %w", err)
	}
	logs.Logger.Infof("smtp sent to=%s subject=%q", to, subject)
	return nil
}

// NopSender — для dev-режима без SMTP: пишем письмо в лог.
type NopSender struct{}

func (NopSender) Send(to, subject, _, textBody string) error {
	logs.Logger.Infof("mail (nop) to=%s subject=%q\n%s", to, subject, textBody)
	return nil
}
