package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger}
}

func (n *SMTPNotifier) NotifyCompleted(_ context.Context, userEmail string, status entity.RunStatusMessage) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := n.compose(userEmail, status)

	err := smtp.SendMail(addr, nil, n.from, []string{userEmail}, []byte(msg))
	if err != nil {
		n.logger.Error("failed to send gallery notification email",
			zap.String("to", userEmail),
			zap.String("run_id", status.RunID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("gallery notification email sent",
		zap.String("to", userEmail),
		zap.String("run_id", status.RunID.String()),
	)
	return nil
}

func (n *SMTPNotifier) compose(userEmail string, status entity.RunStatusMessage) string {
	var subject string
	var body strings.Builder
	body.WriteString("Hello,\r\n\r\n")

	if status.Status == entity.RunStatusCompleted {
		subject = fmt.Sprintf("Media gallery ready [Run %s]", status.RunID)
		fmt.Fprintf(&body, "Your media gallery has been built: %d of %d files added, %d skipped.\r\n\r\n",
			status.Added, status.Total, status.Skipped)
		body.WriteString("Documents:\r\n")
		for _, p := range status.Parts {
			fmt.Fprintf(&body, "  %s\r\n", p)
		}
	} else {
		subject = fmt.Sprintf("Media gallery failed [Run %s]", status.RunID)
		fmt.Fprintf(&body, "Your media gallery could not be completed.\r\n\r\nError: %s\r\n", status.ErrorMessage)
		if len(status.Parts) > 0 {
			body.WriteString("\r\nDocuments saved before the failure:\r\n")
			for _, p := range status.Parts {
				fmt.Fprintf(&body, "  %s\r\n", p)
			}
		}
	}
	fmt.Fprintf(&body, "\r\nRun ID: %s\r\n\r\n-- Media Gallery Service", status.RunID)

	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, userEmail, subject, body.String(),
	)
}
