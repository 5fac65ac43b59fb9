package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"

	"roomworks/server/internal/infra"
)

const sendTimeout = 10 * time.Second

// Notifier informs a submitter that their redesign result is viewable.
type Notifier interface {
	ResultReady(ctx context.Context, email, resultURL string) error
}

// Noop is used when no mail provider is configured.
type Noop struct{}

// ResultReady implements Notifier.
func (Noop) ResultReady(context.Context, string, string) error { return nil }

// MailerSendNotifier delivers result-ready emails through MailerSend.
type MailerSendNotifier struct {
	ms        *mailersend.Mailersend
	fromName  string
	fromEmail string
	logger    infra.Logger
}

// NewMailerSend constructs the notifier.
func NewMailerSend(apiKey, fromName, fromEmail string, logger infra.Logger) *MailerSendNotifier {
	return &MailerSendNotifier{
		ms:        mailersend.NewMailersend(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		logger:    logger,
	}
}

// ResultReady sends the access link. The token inside resultURL is the only
// way to reach the result, so the mail body is deliberately plain.
func (n *MailerSendNotifier) ResultReady(ctx context.Context, email, resultURL string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	message := n.ms.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: n.fromName, Email: n.fromEmail})
	message.SetRecipients([]mailersend.Recipient{{Email: email}})
	message.SetSubject("Your room redesign is ready")
	message.SetText(fmt.Sprintf(
		"Your AI room redesign is ready.\n\nView the before/after comparison here:\n%s\n\nThe link is personal and expires; please do not share it.",
		resultURL,
	))
	message.SetHTML(fmt.Sprintf(
		`<p>Your AI room redesign is ready.</p><p><a href="%s">View the before/after comparison</a></p><p>The link is personal and expires; please do not share it.</p>`,
		resultURL,
	))

	if _, err := n.ms.Email.Send(ctx, message); err != nil {
		return fmt.Errorf("notify: send result email: %w", err)
	}
	n.logger.Info().Str("email", email).Msg("notify: result email sent")
	return nil
}

var _ Notifier = (*MailerSendNotifier)(nil)
var _ Notifier = Noop{}
