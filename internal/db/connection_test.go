package db

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "taps")
	t.Setenv("DB_MAX_CONNS", "40")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "taps", cfg.Database)
	assert.Equal(t, int32(5), cfg.MinConns)
	assert.Equal(t, int32(40), cfg.MaxConns)
	assert.Equal(t,
		"host=db.internal port=6543 dbname=taps user=taps password= sslmode=disable",
		cfg.ConnString(),
	)
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	assert.NoError(t, HealthCheck(context.Background(), mock))

	mock.ExpectPing().WillReturnError(errors.New("connection reset"))
	err = HealthCheck(context.Background(), mock)
	assert.ErrorContains(t, err, "database ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Error(t, HealthCheck(context.Background(), nil))
}
