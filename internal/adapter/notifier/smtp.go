package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPNotifier delivers reminders through a plain SMTP relay. Kerbs map to
// addresses as kerb@domain.
type SMTPNotifier struct {
	addr   string // host:port of the relay
	from   string
	domain string
}

func NewSMTPNotifier(addr, from, domain string) *SMTPNotifier {
	return &SMTPNotifier{addr: addr, from: from, domain: domain}
}

func (n *SMTPNotifier) Send(_ context.Context, kerb, subject, body string) error {
	to := kerb + "@" + n.domain

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	if err := smtp.SendMail(n.addr, nil, n.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
