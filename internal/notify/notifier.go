package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"badge-compliance-service/internal/config"
	"badge-compliance-service/internal/domain/compliance"
)

// Notifier is a fire-and-forget sink for fine notifications. Enqueueing
// never blocks the caller and the outcome of delivery is not observable.
type Notifier interface {
	Notify(n compliance.Notification)
}

// Nop discards notifications; used when email is disabled.
type Nop struct{}

func (Nop) Notify(compliance.Notification) {}

// SMTPNotifier delivers fine notifications through a bounded work queue
// and a single background worker. When the queue is full the payload is
// dropped with a log line; delivery failures are logged and swallowed.
type SMTPNotifier struct {
	cfg   config.EmailConfig
	queue chan compliance.Notification
	done  chan struct{}
	log   zerolog.Logger
}

func NewSMTPNotifier(cfg config.EmailConfig, log zerolog.Logger) *SMTPNotifier {
	n := &SMTPNotifier{
		cfg:   cfg,
		queue: make(chan compliance.Notification, cfg.QueueSize),
		done:  make(chan struct{}),
		log:   log,
	}
	go n.worker()
	return n
}

// Notify enqueues a copy of the payload and returns immediately.
func (n *SMTPNotifier) Notify(payload compliance.Notification) {
	select {
	case n.queue <- payload:
	default:
		n.log.Warn().
			Str("recipient", payload.Address).
			Msg("notification queue full, dropping fine notification")
	}
}

// Close stops accepting payloads and waits for queued deliveries to drain.
func (n *SMTPNotifier) Close() {
	close(n.queue)
	<-n.done
}

func (n *SMTPNotifier) worker() {
	defer close(n.done)
	for payload := range n.queue {
		if err := n.send(payload); err != nil {
			n.log.Error().
				Err(err).
				Str("recipient", payload.Address).
				Msg("failed to send fine notification")
			continue
		}
		n.log.Info().
			Str("recipient", payload.Address).
			Str("name", payload.DisplayName).
			Msg("fine notification sent")
	}
}

func (n *SMTPNotifier) send(p compliance.Notification) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPServer, n.cfg.SMTPPort)
	tlsConfig := &tls.Config{ServerName: n.cfg.SMTPServer}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	if !n.cfg.UseTLS {
		// Implicit TLS on the socket itself.
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, n.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Quit()

	if n.cfg.UseTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	auth := smtp.PlainAuth("", n.cfg.SenderEmail, n.cfg.SenderPassword, n.cfg.SMTPServer)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(n.cfg.SenderEmail); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(p.Address); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := fmt.Fprint(w, n.message(p)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	return w.Close()
}

func (n *SMTPNotifier) message(p compliance.Notification) string {
	body := fmt.Sprintf(
		"Dear %s,\r\n\r\n"+
			"This email is to inform you that a fine of %.2f has been applied due to an ID card policy violation detected on %s.\r\n\r\n"+
			"Your current total outstanding fine amount is %.2f.\r\n\r\n"+
			"Please ensure you adhere to the ID card policy in the future.\r\n\r\n"+
			"Regards,\r\nSystem Administration\r\n",
		p.DisplayName, p.FineAmount, time.Now().Format("2006-01-02 at 15:04:05"), p.NewBalance)

	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.cfg.SenderEmail, p.Address, n.cfg.Subject, body)
}
