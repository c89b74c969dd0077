package database

import (
	"context"
	"testing"

	"github.com/baitool/camt053/internal/config"
	"github.com/baitool/camt053/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSource(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		source, closeFn, err := OpenSource(&config.StatementConfig{Source: config.SourceFile, DataDir: dir}, zerolog.Nop())
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, &FileSource{}, source)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := OpenSource(&config.StatementConfig{Source: "s3"}, zerolog.Nop())
		assert.ErrorContains(t, err, "unknown statement source")
	})
}

func TestOpenSequence(t *testing.T) {
	seq, closeFn := OpenSequence(context.Background(), &config.StatementConfig{Sequence: config.SequenceStatic}, zerolog.Nop())
	defer closeFn()

	assert.Equal(t, services.StaticSequence{}, seq)
}
