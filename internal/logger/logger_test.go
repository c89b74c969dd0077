package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	log := New("debug")
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log = New("nonsense")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	assert.Contains(t, buf.String(), "test message")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestFromContextOr(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		ctx := WithContext(context.Background(), NewWithWriter(buf))

		log := FromContextOr(ctx, zerolog.Nop())
		log.Info().Msg("test")

		assert.NotZero(t, buf.Len())
	})

	t.Run("falls back without a stored logger", func(t *testing.T) {
		buf := &bytes.Buffer{}

		log := FromContextOr(context.Background(), NewWithWriter(buf))
		log.Info().Msg("fallback")

		assert.Contains(t, buf.String(), "fallback")
	})
}

func TestForStatement(t *testing.T) {
	buf := &bytes.Buffer{}
	log := ForStatement(NewWithWriter(buf), "NL44RABO0123456789", "2025-10-15")

	log.Warn().Msg("skipped")

	assert.Contains(t, buf.String(), `"iban":"NL44RABO0123456789"`)
	assert.Contains(t, buf.String(), `"statement_date":"2025-10-15"`)
}
