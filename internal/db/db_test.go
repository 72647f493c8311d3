package db

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_InvalidArgs(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := RunMigrations("", "migrations", log)
	assert.Error(t, err)

	_, err = RunMigrations("postgres://u:p@localhost:5432/db?sslmode=disable", "", log)
	assert.Error(t, err)
}

func TestDefaultPoolConfig(t *testing.T) {
	assert.Equal(t, 50, DefaultPoolConfig(8).MaxConns)
	assert.Equal(t, 128, DefaultPoolConfig(32).MaxConns)
}

func TestNewPool_InvalidDSN(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewPool(context.Background(), "host=localhost port=notaport", PoolConfig{RetryAttempts: 1, RetryDelay: time.Millisecond}, log)

	assert.Error(t, err)
}
