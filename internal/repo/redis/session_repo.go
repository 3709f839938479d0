package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	"github.com/Gonmore/fprax-gateway/internal/session"
)

const (
	snapshotPrefix = "webgate:session:"
	expiredPrefix  = "webgate:expired:"
	registryKey    = "webgate:sessions"
)

// SessionRepo stores session snapshots as single JSON blobs, replaced
// atomically as a whole on every save.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Save(ctx context.Context, sid string, snap session.Snapshot, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return authsvc.ErrInvalidInput
	}
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, snapshotKey(sid), data, ttl)
	pipe.SAdd(ctx, registryKey, sid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return nil
}

func (r *SessionRepo) Load(ctx context.Context, sid string) (session.Snapshot, error) {
	if r.client == nil {
		return session.Snapshot{}, fmt.Errorf("redis client is nil")
	}

	val, err := r.client.Get(ctx, snapshotKey(sid)).Result()
	if err == goredis.Nil {
		return session.Snapshot{}, authsvc.ErrSessionNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("load session snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return session.Snapshot{}, authsvc.ErrCorruptSession
	}
	return snap, nil
}

func (r *SessionRepo) Delete(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, snapshotKey(sid))
	pipe.SRem(ctx, registryKey, sid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}

func (r *SessionRepo) ActiveSIDs(ctx context.Context) ([]string, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	sids, err := r.client.SMembers(ctx, registryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sids, nil
}

func (r *SessionRepo) MarkExpired(ctx context.Context, sid string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return authsvc.ErrInvalidInput
	}

	if err := r.client.Set(ctx, expiredKey(sid), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark session expired: %w", err)
	}
	return nil
}

func (r *SessionRepo) ConsumeExpired(ctx context.Context, sid string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	_, err := r.client.GetDel(ctx, expiredKey(sid)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume expired marker: %w", err)
	}
	return true, nil
}

func snapshotKey(sid string) string {
	return snapshotPrefix + sid
}

func expiredKey(sid string) string {
	return expiredPrefix + sid
}
