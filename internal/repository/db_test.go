package repository

import (
	"context"
	"testing"

	"github.com/segyhp/dues-engine/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestConnect_UnregisteredDriver(t *testing.T) {
	db, err := Connect(context.Background(), config.DatabaseConfig{
		Driver: "mysql",
		URL:    "dues:dues@tcp(localhost:3306)/dues",
	})

	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to connect to database")
}
