package store

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisHealthy(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	r := NewRedis(mr.Addr())
	defer r.Close()
	assert.True(t, r.Healthy(context.Background()))

	mr.Close()
	assert.False(t, r.Healthy(context.Background()))

	var nilRedis *Redis
	assert.False(t, nilRedis.Healthy(context.Background()))
	assert.NoError(t, nilRedis.Close())
}

func TestSchemaGuardsDuplicates(t *testing.T) {
	require.Contains(t, schema, "UNIQUE (student_id, session_id, attend_date)")
	assert.Equal(t, 5, strings.Count(schema, "CREATE TABLE IF NOT EXISTS"))
}

func TestNilDBClose(t *testing.T) {
	var d *DB
	assert.NoError(t, d.Close())
}
