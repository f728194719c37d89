package service

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// MailerConfig holds SMTP delivery settings.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// MailerService sends transactional email over SMTP. When no host is
// configured delivery degrades to a log line, which keeps development
// environments working without a relay.
type MailerService struct {
	logger *zap.Logger
	config MailerConfig
}

// NewMailerService constructs a MailerService instance.
func NewMailerService(logger *zap.Logger, config MailerConfig) *MailerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailerService{logger: logger, config: config}
}

// Send delivers a plain-text message to a single recipient.
func (s *MailerService) Send(to, subject, body string) error {
	if s.config.Host == "" {
		s.logger.Info("smtp not configured, skipping delivery",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.config.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
