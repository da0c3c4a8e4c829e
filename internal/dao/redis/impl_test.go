package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"chat_fanout_server/pkg/errorx"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	if _, found, err := c.Get(ctx, ChatKey(1)); err != nil || found {
		t.Fatalf("Get on empty cache: found=%v err=%v", found, err)
	}
	if err := c.Set(ctx, ChatKey(1), `{"id":1}`, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, found, err := c.Get(ctx, ChatKey(1))
	if err != nil || !found || v != `{"id":1}` {
		t.Fatalf("Get = %q, %v, %v", v, found, err)
	}
	if ttl := mr.TTL("chat:1"); ttl != time.Minute {
		t.Errorf("ttl = %v", ttl)
	}

	_ = c.Set(ctx, ActiveMembersKey(1), "[]", time.Minute)
	if err := c.Delete(ctx, ChatKey(1), ActiveMembersKey(1), MemberKey(9, 1)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists("chat:1") || mr.Exists("chat:1:activeMembers") {
		t.Error("keys still present after Delete")
	}
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	_ = c.Set(ctx, MemberKey(1, 2), "x", DefaultTTL)
	mr.FastForward(DefaultTTL + time.Second)
	if _, found, _ := c.Get(ctx, MemberKey(1, 2)); found {
		t.Error("entry served after TTL")
	}
}

func TestRedisCacheErrorsAreCacheErrors(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)
	mr.SetError("LOADING")

	_, _, err := c.Get(ctx, ChatKey(1))
	if errorx.GetCode(err) != errorx.CodeCacheError {
		t.Fatalf("Get err code = %d (%v)", errorx.GetCode(err), err)
	}
	if err := c.Set(ctx, ChatKey(1), "v", time.Minute); errorx.GetCode(err) != errorx.CodeCacheError {
		t.Fatalf("Set err = %v", err)
	}
}
