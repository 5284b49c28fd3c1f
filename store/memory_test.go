package store

import (
	"context"
	"testing"

	"github.com/rushteam/homeprice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	got, err := s.BatchGet(ctx, []string{"k", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"k": []byte("v")}, got)
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.HSet(ctx, "income", "90210", []byte("120000")))
	require.NoError(t, s.HSet(ctx, "income", "10001", []byte("80000")))
	require.NoError(t, s.HSet(ctx, "other", "90210", []byte("1")))

	v, err := s.HGet(ctx, "income", "90210")
	require.NoError(t, err)
	assert.Equal(t, "120000", string(v))

	all, err := s.HGetAll(ctx, "income")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "80000", string(all["10001"]))

	empty, err := s.HGetAll(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
