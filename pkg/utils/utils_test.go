package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ana.perez@example.com"))
	assert.Error(t, ValidateEmail("ana.perez@"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidateLanguageCode(t *testing.T) {
	for _, code := range []string{"es", "fra", "pt-BR", "zh-Hant"} {
		assert.NoError(t, ValidateLanguageCode(code), code)
	}
	for _, code := range []string{"", "Spanish", "e", "es_ES"} {
		assert.Error(t, ValidateLanguageCode(code), code)
	}
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(303.71))
	assert.Error(t, ValidateAmount(-1))
	assert.Error(t, ValidateAmount(100000.01))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"birth certificate.pdf":        "birth_certificate.pdf",
		"../../etc/passwd":             "passwd",
		`C:\Users\ana\diploma (1).png`: "diploma_1_.png",
		"...":                          "document",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "helloworld", SanitizeString("hello\x00world\x7f"))
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json", Service: "quotes"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestKeyValueLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	kv := NewKeyValueLogger(zap.New(core))

	kv.Info("Quote processed", "quote_id", "q-1", "documents", 2)
	kv.Error("Failed to send email", "error", "timeout")

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Quote processed", entry.Message)
	assert.Equal(t, "q-1", entry.ContextMap()["quote_id"])
	assert.Equal(t, int64(2), entry.ContextMap()["documents"])
}
