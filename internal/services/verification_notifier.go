package services

import (
	"context"
	"fmt"
	"time"

	"github.com/you/accountsvc/domain"
)

// SMSVerificationNotifier implements domain.VerificationNotifier by issuing a
// fresh code and texting it.
type SMSVerificationNotifier struct {
	otpSvc  domain.OTPService
	sms     domain.SMSSender
	codeTTL time.Duration
}

// NewSMSVerificationNotifier creates a new SMS verification notifier
func NewSMSVerificationNotifier(otpSvc domain.OTPService, sms domain.SMSSender, codeTTL time.Duration) domain.VerificationNotifier {
	return &SMSVerificationNotifier{otpSvc: otpSvc, sms: sms, codeTTL: codeTTL}
}

// NotifyVerificationRequired implements domain.VerificationNotifier
func (n *SMSVerificationNotifier) NotifyVerificationRequired(ctx context.Context, user *domain.User, targetPhone string) error {
	code, err := n.otpSvc.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, int(n.codeTTL.Minutes()))
	if err := n.sms.SendSMS(ctx, targetPhone, message); err != nil {
		return fmt.Errorf("failed to send verification SMS: %w", err)
	}
	return nil
}
