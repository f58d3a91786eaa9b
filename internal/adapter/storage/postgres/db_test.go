package postgres

import (
	"context"
	"testing"

	"collateral-ledger/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewPool_InvalidDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:    "localhost",
		Port:    -1,
		User:    "ledger",
		DBName:  "collateral_ledger",
		SSLMode: "disable",
	}

	pool, err := NewPool(context.Background(), cfg, zerolog.Nop())
	assert.Nil(t, pool)
	assert.ErrorContains(t, err, "parsing database config")
}

func TestNewPool_UnreachableDatabase(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "ledger",
		Password: "ledger",
		DBName:   "collateral_ledger",
		SSLMode:  "disable",
		MaxConns: 2,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool, err := NewPool(ctx, cfg, zerolog.Nop())
	assert.Nil(t, pool)
	assert.Error(t, err)
}
