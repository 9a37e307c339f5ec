package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("mysql")
	require.NoError(t, err)
	assert.Equal(t, MySQL, d)

	for _, name := range []string{"postgres", "pgx"} {
		d, err = DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, Postgres, d)
	}

	_, err = DialectFor("mssql")
	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestRebind(t *testing.T) {
	q := "SELECT 1 FROM bookings WHERE event_id = ? AND user_id = ?"
	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, "SELECT 1 FROM bookings WHERE event_id = $1 AND user_id = $2", Postgres.Rebind(q))
	assert.Equal(t, "SELECT 1", Postgres.Rebind("SELECT 1"))
}
