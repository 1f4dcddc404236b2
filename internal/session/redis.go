package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
)

const redisKeyPrefix = "session:"

// Dialogs that sit untouched longer than this are abandoned.
const redisSessionTTL = 2 * time.Hour

type redisManager struct {
	client *redis.Client
}

// NewRedisManager keeps sessions in Redis so a restart does not drop
// in-flight dialogs. Read failures degrade to an idle session; write
// failures are logged and swallowed.
func NewRedisManager(client *redis.Client) Manager {
	return &redisManager{client: client}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func (m *redisManager) Get(ctx context.Context, userID int64) Session {
	raw, err := m.client.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx, "service.flow", "session.read_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return Session{Step: StepIdle}
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		logger.Warn(ctx, "service.flow", "session.decode_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Session{Step: StepIdle}
	}
	return s
}

func (m *redisManager) Put(ctx context.Context, userID int64, s Session) {
	raw, err := json.Marshal(s)
	if err != nil {
		logger.Warn(ctx, "service.flow", "session.encode_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return
	}
	if err := m.client.Set(ctx, redisKey(userID), raw, redisSessionTTL).Err(); err != nil {
		logger.Warn(ctx, "service.flow", "session.write_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (m *redisManager) Clear(ctx context.Context, userID int64) {
	if err := m.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		logger.Warn(ctx, "service.flow", "session.clear_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (m *redisManager) InProgress(ctx context.Context, userID int64) bool {
	return !m.Get(ctx, userID).Idle()
}
