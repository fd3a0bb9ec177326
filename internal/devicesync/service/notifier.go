package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier delivers a verification code to the user out of band. Production
// deployments plug in email or push delivery here.
type Notifier interface {
	Deliver(ctx context.Context, userID uuid.UUID, code string) error
}

// LogNotifier writes verification codes to the log. Development only; it
// prints the plain code.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Deliver logs the verification code for the user.
func (n *LogNotifier) Deliver(_ context.Context, userID uuid.UUID, code string) error {
	n.logger.Info("device verification code issued",
		slog.String("user_id", userID.String()),
		slog.String("code", code),
	)
	return nil
}
