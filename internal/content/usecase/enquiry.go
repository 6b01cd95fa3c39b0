package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

// EnquiryService validates contact enquiries and hands them to the mailer.
type EnquiryService struct {
	mailer repository.Mailer
	log    logger.Logger
	now    func() time.Time
}

func NewEnquiryService(mailer repository.Mailer, log logger.Logger) *EnquiryService {
	if log == nil {
		log = logger.NewNop()
	}
	return &EnquiryService{mailer: mailer, log: log.WithComponent("enquiry"), now: time.Now}
}

// Configured reports whether enquiries can be delivered.
func (s *EnquiryService) Configured() bool { return s.mailer != nil }

// Submit validates e and sends it, returning the message ID.
func (s *EnquiryService) Submit(ctx context.Context, e model.Enquiry) (string, error) {
	if s.mailer == nil {
		return "", errors.NewConfigurationError("email is not configured on server")
	}
	if err := ValidateEnquiry(e); err != nil {
		return "", err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.log.Info("enquiry received",
		zap.String("customer", e.ContactDetails.Name),
		zap.Int("products", len(e.Products)))
	return s.mailer.SendEnquiry(ctx, e)
}

// ValidateEnquiry requires at least one product and a contact name and email.
func ValidateEnquiry(e model.Enquiry) error {
	if len(e.Products) == 0 {
		return errors.NewValidationError("No products in enquiry")
	}
	if strings.TrimSpace(e.ContactDetails.Name) == "" || strings.TrimSpace(e.ContactDetails.Email) == "" {
		return errors.NewValidationError("Customer name and email are required")
	}
	return nil
}
