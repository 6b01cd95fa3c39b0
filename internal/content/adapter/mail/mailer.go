package mail

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

// Config holds SMTP settings. Host defaults to Gmail's submission server.
type Config struct {
	Host      string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	User      string `env:"GMAIL_USER"`
	Pass      string `env:"GMAIL_PASS"`
	Recipient string `env:"RECIPIENT_EMAIL"`
	FromName  string `env:"MAIL_FROM_NAME" envDefault:"Global XT Website"`
	Company   string `env:"MAIL_COMPANY" envDefault:"Global XT Limited"`
	SiteURL   string `env:"MAIL_SITE_URL" envDefault:"https://globalxtltd.com"`
}

// Configured reports whether credentials and a recipient are set.
func (c Config) Configured() bool {
	return c.User != "" && c.Pass != "" && c.Recipient != ""
}

// Sender delivers composed messages. *gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends contact enquiries by email.
type Mailer struct {
	cfg    Config
	sender Sender
	logger logger.Logger
}

var _ repository.Mailer = (*Mailer)(nil)

// NewMailer returns a mailer that sends through SMTP.
func NewMailer(cfg Config, log logger.Logger) *Mailer {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return NewMailerWithSender(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass), log)
}

// NewMailerWithSender returns a mailer using sender for delivery.
func NewMailerWithSender(cfg Config, sender Sender, log logger.Logger) *Mailer {
	if cfg.FromName == "" {
		cfg.FromName = "Global XT Website"
	}
	if cfg.Company == "" {
		cfg.Company = "Global XT Limited"
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = "https://globalxtltd.com"
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Mailer{cfg: cfg, sender: sender, logger: log.WithComponent("mailer")}
}

// Subject builds "New Enquiry – <name> (<n> item(s))".
func Subject(e model.Enquiry) string {
	return fmt.Sprintf("New Enquiry – %s (%s)", e.ContactDetails.Name, plural(len(e.Products), "item"))
}

// Compose builds the message for e without sending it.
func (m *Mailer) Compose(e model.Enquiry) (*gomail.Message, string, error) {
	data := struct {
		Enquiry model.Enquiry
		Company string
		SiteURL string
	}{e, m.cfg.Company, m.cfg.SiteURL}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return nil, "", errors.WrapError(err, "rendering enquiry email")
	}
	if err := textBody.Execute(&text, data); err != nil {
		return nil, "", errors.WrapError(err, "rendering enquiry email")
	}

	id := fmt.Sprintf("<%s@sitecontent>", uuid.NewString())
	msg := gomail.NewMessage()
	msg.SetHeader("Message-ID", id)
	msg.SetAddressHeader("From", m.cfg.User, m.cfg.FromName)
	msg.SetHeader("To", m.cfg.Recipient)
	msg.SetHeader("Reply-To", e.ContactDetails.Email)
	msg.SetHeader("Subject", Subject(e))
	msg.SetBody("text/plain", text.String())
	msg.AddAlternative("text/html", html.String())
	return msg, id, nil
}

// SendEnquiry composes and sends the enquiry, returning the message ID.
func (m *Mailer) SendEnquiry(ctx context.Context, e model.Enquiry) (string, error) {
	if !m.cfg.Configured() {
		return "", errors.NewConfigurationError("email is not configured on server")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg, id, err := m.Compose(e)
	if err != nil {
		return "", err
	}
	if err := m.sender.DialAndSend(msg); err != nil {
		m.logger.Error("sending enquiry failed", zap.String("customer", e.ContactDetails.Email), zap.Error(err))
		return "", errors.NewInfrastructureError("sending enquiry failed").WithCause(err)
	}
	m.logger.Info("enquiry sent",
		zap.String("messageId", id),
		zap.String("customer", e.ContactDetails.Email),
		zap.Int("products", len(e.Products)))
	return id, nil
}
