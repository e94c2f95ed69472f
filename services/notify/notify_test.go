package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnconfiguredIsNoop(t *testing.T) {
	svc := NewService(SmtpConfig{})
	require.False(t, svc.Configured())
	require.NoError(t, svc.SendSummary(context.Background(), "subject", "body"))

	// a server without recipients is still unconfigured
	svc = NewService(SmtpConfig{Server: "smtp.example.com", Port: 587})
	require.False(t, svc.Configured())
	require.NoError(t, svc.SendSummary(context.Background(), "subject", "body"))
}

func TestConfigured(t *testing.T) {
	svc := NewService(SmtpConfig{
		Server:       "smtp.example.com",
		Port:         587,
		EmailAddress: "bot@example.com",
		To:           []string{"bendahara@example.com"},
	})
	require.True(t, svc.Configured())
}
