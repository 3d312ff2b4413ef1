package sessions

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "forum:session:"

var _ Repo = (*RedisRepo)(nil)

// RedisRepo stores sessions as JSON blobs that expire with the session
type RedisRepo struct {
	client  redis.UniversalClient
	nowFunc func() time.Time
}

func NewRedisRepo(client redis.UniversalClient) *RedisRepo {
	return &RedisRepo{client: client, nowFunc: time.Now}
}

func (r *RedisRepo) Upsert(ctx context.Context, session Session) error {
	if session.ID == "" {
		return errors.New("[RedisRepo.Upsert] sessionID is required")
	}
	ttl := session.ExpiresAt.Sub(r.nowFunc())
	if ttl <= 0 {
		return apperrors.ErrSessionExpired
	}

	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[RedisRepo.Upsert] json.Marshal")
	}
	if err := r.client.Set(ctx, redisKeyPrefix+session.ID, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Upsert] SET")
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, apperrors.ErrSessionNotFound
		}
		return Session{}, errors.Wrap(err, "[RedisRepo.Get] GET")
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, errors.Wrap(err, "[RedisRepo.Get] json.Unmarshal")
	}
	return session, nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Delete] DEL")
	}
	return nil
}
