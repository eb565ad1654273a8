package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	entryTokenKeyPrefix   = "entry_token:"
	notificationKeyPrefix = "payment_notification:"
)

// entryTokenStore 入场令牌缓存，值为订单 id
type entryTokenStore struct {
	data   *Data
	logger *log.Helper
}

// NewEntryTokenStore 创建入场令牌缓存
func NewEntryTokenStore(data *Data, logger log.Logger) biz.EntryTokenStore {
	return &entryTokenStore{data: data, logger: log.NewHelper(logger)}
}

func (s *entryTokenStore) Put(ctx context.Context, token string, orderID int64, ttl time.Duration) error {
	ctx, span := tracing.StartSpan(ctx, "EntryTokenStore.Put")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"order_id":    orderID,
		"ttl_seconds": int64(ttl.Seconds()),
	})

	key := entryTokenKeyPrefix + token
	if err := s.data.RedisClient().Set(ctx, key, orderID, ttl).Err(); err != nil {
		s.logger.WithContext(ctx).Errorf("Failed to cache entry token for order %d, error_reason: %v", orderID, err)
		return err
	}
	return nil
}

func (s *entryTokenStore) Get(ctx context.Context, token string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "EntryTokenStore.Get")
	defer span.End()

	orderID, err := s.data.RedisClient().Get(ctx, entryTokenKeyPrefix+token).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, biz.ErrEntryNotFound
		}
		s.logger.WithContext(ctx).Errorf("Failed to read entry token, error_reason: %v", err)
		return 0, err
	}
	return orderID, nil
}

// notificationDeduper 基于 SETNX 的回调去重
type notificationDeduper struct {
	data   *Data
	logger *log.Helper
}

// NewNotificationDeduper 创建回调去重器
func NewNotificationDeduper(data *Data, logger log.Logger) biz.NotificationDeduper {
	return &notificationDeduper{data: data, logger: log.NewHelper(logger)}
}

func (d *notificationDeduper) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "NotificationDeduper.FirstSeen")
	defer span.End()

	ok, err := d.data.RedisClient().SetNX(ctx, notificationKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe %s: %w", key, err)
	}
	if !ok {
		d.logger.WithContext(ctx).Infof("Duplicate payment notification %s", key)
	}
	return ok, nil
}

// Forget 释放去重 key
func (d *notificationDeduper) Forget(ctx context.Context, key string) error {
	ctx, span := tracing.StartSpan(ctx, "NotificationDeduper.Forget")
	defer span.End()

	if err := d.data.RedisClient().Del(ctx, notificationKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("forget %s: %w", key, err)
	}
	return nil
}
