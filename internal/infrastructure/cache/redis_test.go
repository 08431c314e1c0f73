package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis_SelectsDB(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(context.Background(), Options{Addr: s.Addr(), DB: 3}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.Equal(t, 3, c.Options().DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Set(ctx, "idemp:k", "v", 0).Err())

	s.Select(3)
	got, err := s.Get("idemp:k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestOpenRedis_Password(t *testing.T) {
	s := miniredis.RunT(t)
	s.RequireAuth("secret")

	_, err := OpenRedis(context.Background(), Options{Addr: s.Addr()}, zerolog.Nop())
	require.Error(t, err)

	c, err := OpenRedis(context.Background(), Options{Addr: s.Addr(), Password: "secret"}, zerolog.Nop())
	require.NoError(t, err)
	_ = c.Close()
}

func TestOpenRedis_Unreachable(t *testing.T) {
	_, err := OpenRedis(context.Background(), Options{Addr: "not-a-real-host:6379"}, zerolog.Nop())
	require.ErrorContains(t, err, "not-a-real-host:6379")
}
