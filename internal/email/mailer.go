package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// Mailer dispatches outbound auth email. Delivery is fire-and-forget from the
// caller's point of view: a send failure never fails the triggering action.
type Mailer interface {
	SendVerification(ctx context.Context, to, verifyURL string) error
}

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) SendVerification(ctx context.Context, to, verifyURL string) error {
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Account Verification",
		Html: fmt.Sprintf(
			`<p>Hi %s,</p><p>Click the link below to verify your email address. The link expires in 5 minutes.</p><p><a href=%q>Verify email</a></p>`,
			to, verifyURL,
		),
	})
	if err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}
