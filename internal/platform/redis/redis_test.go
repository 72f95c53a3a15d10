package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsBadOptions(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{})
	require.ErrorContains(t, err, "empty redis addr")

	_, err = Open(ctx, Options{Addr: "localhost:6379", DB: -1})
	require.ErrorContains(t, err, "invalid redis db")
}

func TestOpenUnreachableNamesAddressNotPassword(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Open(ctx, Options{Addr: "127.0.0.1:1", Password: "hunter2", DB: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis 127.0.0.1:1 db 3")
	assert.NotContains(t, err.Error(), "hunter2")
}
