package services

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/playdrop/backend/internal/config"
)

type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendShareVerificationCode sends the email-gate verification code to a
// share link visitor.
func (s *EmailService) SendShareVerificationCode(to, shareLabel, code string) error {
	subject := fmt.Sprintf("Your access code for %s", shareLabel)

	body := fmt.Sprintf(`Hi,

You requested access to the shared playlist "%s".

Your verification code is: %s

Enter this code on the playlist page to continue. If you did not request
access, you can ignore this email.

%s`, shareLabel, code, s.cfg.SMTPFromName)

	return s.SendGenericTextEmail(to, subject, body)
}

// SendShareInvitation notifies a preset recipient that a playlist has been
// shared with them.
func (s *EmailService) SendShareInvitation(to, playlistTitle, shareURL string) error {
	subject := fmt.Sprintf("A playlist has been shared with you: %s", playlistTitle)

	body := fmt.Sprintf(`Hi,

The playlist "%s" has been shared with you.

Listen here: %s

This link is addressed to %s. You may be asked to confirm your email
before the playlist loads.

%s`, playlistTitle, shareURL, to, s.cfg.SMTPFromName)

	return s.SendGenericTextEmail(to, subject, body)
}

// SendGenericTextEmail sends a plain text email with given subject and body
func (s *EmailService) SendGenericTextEmail(to, subject, body string) error {
	from := fmt.Sprintf("%s <%s>", s.cfg.SMTPFromName, s.cfg.SMTPFrom)
	message := fmt.Sprintf("From: %s\r\n", from)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "Content-Type: text/plain; charset=\"UTF-8\"\r\n"
	message += "\r\n"
	message += body
	return s.sendSMTP(to, []byte(message))
}

// sendSMTP sends an email via SMTP
func (s *EmailService) sendSMTP(to string, message []byte) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	// Implicit TLS (port 465)
	if s.cfg.SMTPPort == 465 {
		tlsConfig := &tls.Config{
			ServerName: s.cfg.SMTPHost,
		}

		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		defer client.Close()

		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}

		if err := client.Mail(s.cfg.SMTPFrom); err != nil {
			return err
		}
		if err := client.Rcpt(to); err != nil {
			return err
		}

		w, err := client.Data()
		if err != nil {
			return err
		}
		if _, err = w.Write(message); err != nil {
			return err
		}
		if err = w.Close(); err != nil {
			return err
		}

		return client.Quit()
	}

	// STARTTLS (port 587)
	return smtp.SendMail(addr, auth, s.cfg.SMTPFrom, []string{to}, message)
}
