package service

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
)

const testSigningSecret = "test-signing-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *repository.BoltStore {
	t.Helper()

	store, err := repository.OpenBolt(filepath.Join(t.TempDir(), "service-test.db"))
	require.NoError(t, err, "failed to open bolt store")
	t.Cleanup(func() {
		_ = store.Close() //nolint:errcheck // test cleanup
	})

	return store
}

func testPayflexiConfig() *config.PayflexiConfig {
	return &config.PayflexiConfig{
		APIBase:       "https://api.payflexi.test/",
		Gateway:       "stripe",
		Mode:          models.ModeTest,
		TestSecretKey: "sk_test_abc",
		TestPublicKey: "pk_test_abc",
		SigningSecret: testSigningSecret,
		PublicURL:     "https://forms.example.com",
	}
}
