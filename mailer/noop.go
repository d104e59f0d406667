package mailer

import (
	"context"
	"log"
)

// Noop logs instead of sending. Useful for development and tests.
type Noop struct {
	// Silent suppresses the log lines.
	Silent bool
}

func (n Noop) SendActivationEmail(_ context.Context, email, code string) error {
	if !n.Silent {
		log.Printf("mailer: would send activation to %s code=%s", email, code)
	}
	return nil
}

func (n Noop) SendResetEmail(_ context.Context, email, token string) error {
	if !n.Silent {
		log.Printf("mailer: would send reset to %s token=%s", email, token)
	}
	return nil
}
