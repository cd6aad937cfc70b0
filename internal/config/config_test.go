package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.App.HTTPAddr)
	require.Equal(t, 10*time.Second, cfg.App.ShutdownTimeout)
	require.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	require.Equal(t, "token", cfg.Auth.CookieName)
	require.Equal(t, 587, cfg.Mail.SMTPPort)
	require.Empty(t, cfg.Razorpay.KeySecret)
}

func TestLoadMissingFileTolerated(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.yaml")
	body := []byte("app:\n  http_addr: \":9090\"\nrazorpay:\n  key_id: rzp_file\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("STOREFRONT_RAZORPAY__KEY_ID", "rzp_env")
	t.Setenv("STOREFRONT_AUTH__ADMIN_EMAILS", "a@example.com, b@example.com")
	t.Setenv("STOREFRONT_NOTIFY__TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.App.HTTPAddr)
	require.Equal(t, "rzp_env", cfg.Razorpay.KeyID)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Auth.AdminEmails)
	require.Equal(t, 3*time.Second, cfg.Notify.Timeout)
}

func TestValidate(t *testing.T) {
	var cfg Config
	require.Error(t, cfg.Validate())
	cfg.App.HTTPAddr = ":1"
	cfg.DB.DSN = "postgres://x"
	cfg.Auth.CookieName = "token"
	require.NoError(t, cfg.Validate())
}
