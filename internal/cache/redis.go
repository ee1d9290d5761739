// Package cache реализует хранение клиентских сессий портала в Redis.
//
// Каждое пространство имён сессии хранится одним хешем, поэтому пара токенов
// и закешированный профиль записываются и удаляются одной командой или
// транзакцией MULTI.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/student-portal/internal/config"
)

// Cache Redis-хранилище сессий.
type Cache struct {
	Db     *redis.Client
	prefix string
	ttl    time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
// prefix добавляется к ключам сессий, ttl > 0 задаёт время жизни сессии.
func InitServer(ctx context.Context, cfg config.RedisConnection, prefix string, ttl time.Duration) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, prefix: prefix, ttl: ttl}, nil
}

// Ping проверяет соединение с Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.Db.Ping(ctx).Err()
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}

func (c *Cache) key(ns string) string {
	return c.prefix + ns
}

// Load возвращает поля сессии.
func (c *Cache) Load(ctx context.Context, ns string) (map[string]string, error) {
	const op = "cache.Load"
	fields, err := c.Db.HGetAll(ctx, c.key(ns)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return fields, nil
}

// Save дописывает поля сессии и продлевает её время жизни.
func (c *Cache) Save(ctx context.Context, ns string, fields map[string]string) error {
	const op = "cache.Save"
	if len(fields) == 0 {
		return nil
	}
	key := c.key(ns)
	_, err := c.Db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, pairs(fields)...)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveIf дописывает поля сессии, только если поле field равно want. Запись
// идёт под WATCH, конкурентное изменение ключа отменяет её.
func (c *Cache) SaveIf(ctx context.Context, ns, field, want string, fields map[string]string) (bool, error) {
	const op = "cache.SaveIf"
	key := c.key(ns)
	saved := false
	err := c.Db.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, field).Result()
		if errors.Is(err, redis.Nil) || (err == nil && cur != want) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, pairs(fields)...)
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		saved = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// Replace атомарно заменяет содержимое сессии.
func (c *Cache) Replace(ctx context.Context, ns string, fields map[string]string) error {
	const op = "cache.Replace"
	key := c.key(ns)
	_, err := c.Db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, pairs(fields)...)
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет сессию.
func (c *Cache) Delete(ctx context.Context, ns string) error {
	const op = "cache.Delete"
	if err := c.Db.Del(ctx, c.key(ns)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func pairs(fields map[string]string) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
