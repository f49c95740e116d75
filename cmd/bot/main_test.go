package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"feestplanner/internal/config"
	"feestplanner/internal/kv"
	"feestplanner/internal/storage"
)

func TestSanitizeTelegramErrRedactsToken(t *testing.T) {
	token := "123456:secret-token"
	err := errors.New("Post https://api.telegram.org/bot123456:secret-token/getMe: timeout")
	got := sanitizeTelegramErr(err, token)
	if strings.Contains(got, "secret-token") {
		t.Fatalf("token leaked: %s", got)
	}
	if sanitizeTelegramErr(nil, token) != "" {
		t.Fatalf("expected empty string for nil error")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBackendFactorySelectsStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, "sqlite3", ":memory:", true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	if _, ok := backendFactory(config.StateBackendSQL, store, rdb)("tg:1").(*storage.ClientState); !ok {
		t.Fatalf("expected sql backed client state")
	}
	b := backendFactory(config.StateBackendRedis, store, rdb)("tg:1")
	if _, ok := b.(*kv.RedisBackend); !ok {
		t.Fatalf("expected redis backend, got %T", b)
	}
	if err := b.Set(ctx, "budget.v1", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("feestplanner:state:tg:1:budget.v1") {
		t.Fatalf("expected redis key for client state")
	}
}
