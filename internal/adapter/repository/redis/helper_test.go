package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestRedisClient returns a client bound to an in-memory server. Both are
// released when the test ends.
func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func requireKeys(t *testing.T, mr *miniredis.Miniredis, want ...string) {
	t.Helper()
	for _, k := range want {
		if !mr.Exists(k) {
			t.Fatalf("expected key %q, have %v", k, mr.Keys())
		}
	}
}
