package database

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestGetConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config := GetConfig()

		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "5432", config.Port)
		assert.Equal(t, "bai", config.Name)
		assert.Equal(t, 10, config.MaxOpenConns)
		assert.Equal(t,
			"host=localhost port=5432 user=postgres password=password dbname=bai sslmode=disable",
			config.DSN())
	})

	t.Run("overrides", func(t *testing.T) {
		viper.Set("database.host", "db.internal")
		viper.Set("database.name", "statements")
		t.Cleanup(func() {
			viper.Set("database.host", "localhost")
			viper.Set("database.name", "bai")
		})

		config := GetConfig()
		assert.Equal(t, "db.internal", config.Host)
		assert.Contains(t, config.DSN(), "dbname=statements")
	})
}
