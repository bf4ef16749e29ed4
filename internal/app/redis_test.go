package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestKeyspace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cmd  redis.Cmder
		want string
	}{
		{redis.NewStatusCmd(ctx, "set", "lock:car:abc", "token"), "lock"},
		{redis.NewStringCmd(ctx, "get", "cache:cars:3:/api/cars/get-cars"), "cache"},
		{redis.NewStringCmd(ctx, "get", "plain"), "plain"},
		{redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tt := range tests {
		if got := keyspace(tt.cmd); got != tt.want {
			t.Errorf("keyspace(%v) = %q, want %q", tt.cmd.Args(), got, tt.want)
		}
	}
}
