package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// SMTPNotifier mails the list of newly-seen junk senders after a
// completed run.
type SMTPNotifier struct {
	addr     string // host:port, implicit TLS
	username string
	password string
	from     string
	to       string
	logger   *zap.Logger
}

// NewSMTPNotifier creates a notifier submitting through addr.
func NewSMTPNotifier(addr, username, password, from, to string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		addr:     addr,
		username: username,
		password: password,
		from:     from,
		to:       to,
		logger:   logger,
	}
}

// NotifyNewAddresses sends one plain-text message listing addrs. An
// empty list sends nothing.
func (n *SMTPNotifier) NotifyNewAddresses(_ context.Context, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", n.to)
	fmt.Fprintf(&b, "Subject: junk-scan: %d new sender(s)\r\n", len(addrs))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("\r\n")
	b.WriteString("New junk senders seen on this run:\r\n\r\n")
	for _, addr := range addrs {
		fmt.Fprintf(&b, "  - %s\r\n", addr)
	}

	auth := sasl.NewPlainClient("", n.username, n.password)
	if err := smtp.SendMailTLS(n.addr, auth, n.from, []string{n.to}, strings.NewReader(b.String())); err != nil {
		return fmt.Errorf("sending notification mail: %w", err)
	}

	n.logger.Info("Sent new-address notification",
		zap.String("to", n.to),
		zap.Int("addresses", len(addrs)))
	return nil
}

// Noop is the notifier used when notifications are disabled.
type Noop struct{}

// NotifyNewAddresses does nothing.
func (Noop) NotifyNewAddresses(context.Context, []string) error {
	return nil
}
