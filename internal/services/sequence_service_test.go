package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSequence_Next(t *testing.T) {
	ctx := context.Background()
	day := civil.Date{Year: 2025, Month: time.October, Day: 15}
	key := "camt053:seq:NL44RABO0123456789:20251015"

	t.Run("first and repeated allocation", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		seq := NewRedisSequence(redisClient, time.Hour)

		mock.ExpectIncr(key).SetVal(1)
		mock.ExpectExpire(key, time.Hour).SetVal(true)
		mock.ExpectIncr(key).SetVal(2)
		mock.ExpectExpire(key, time.Hour).SetVal(true)

		n, err := seq.Next(ctx, "nl44 rabo 0123 4567 89", day, day)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = seq.Next(ctx, testIBAN, day, day)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "STMT20251015002", PeriodMessageID(day, day, n))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		seq := NewRedisSequence(redisClient, 0)

		mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

		_, err := seq.Next(ctx, testIBAN, day, day)
		assert.Error(t, err)
	})

	t.Run("periods count separately", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		seq := NewRedisSequence(redisClient, time.Hour)
		from := civil.Date{Year: 2025, Month: time.October, Day: 1}
		periodKey := "camt053:seq:NL44RABO0123456789:20251001_20251015"

		mock.ExpectIncr(periodKey).SetVal(1)
		mock.ExpectExpire(periodKey, time.Hour).SetVal(true)

		n, err := seq.Next(ctx, testIBAN, from, day)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exhausted", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		seq := NewRedisSequence(redisClient, time.Hour)

		mock.ExpectIncr(key).SetVal(1000)
		mock.ExpectExpire(key, time.Hour).SetVal(true)

		_, err := seq.Next(ctx, testIBAN, day, day)
		assert.ErrorContains(t, err, "exhausted")
	})
}
