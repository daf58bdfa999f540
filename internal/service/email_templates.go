package service

import (
	"fmt"
	"time"
)

func passwordResetEmailTemplate(resetURL, appName string, validFor time.Duration) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`You requested to reset your password. Use this link to choose a new one:
%s

This link expires in %d minutes and can only be used once.

If you didn't request this, you can safely ignore this email. Your password won't be changed.

Best,
The %s Team`, resetURL, int(validFor.Minutes()), appName)

	return subject, body
}
