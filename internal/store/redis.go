package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/report"
)

const reportKeyPrefix = "report:"

// RedisStore keeps each report as one JSON value.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects and pings the server.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &RedisStore{client: rdb, now: time.Now}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func reportKey(id string) string {
	return reportKeyPrefix + id
}

func (s *RedisStore) Save(ctx context.Context, r *report.Report) (string, error) {
	stored := report.Prepare(r, s.now())
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := s.client.Set(ctx, reportKey(stored.ID), data, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return stored.ID, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*report.Report, error) {
	data, err := s.client.Get(ctx, reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return decodeReport(data)
}

// Update rewrites the records under WATCH so a concurrent writer forces a retry
// instead of being overwritten.
func (s *RedisStore) Update(ctx context.Context, id string, records []report.Record) error {
	key := reportKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errs.ErrReportNotFound
		}
		if err != nil {
			return err
		}
		r, err := decodeReport(data)
		if err != nil {
			return err
		}
		encoded, err := applyUpdate(r, records, s.now())
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, errs.ErrReportNotFound) {
			return fmt.Errorf("failed to update report: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to update report %s: too much contention", id)
}

func decodeReport(data []byte) (*report.Report, error) {
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

func applyUpdate(r *report.Report, records []report.Record, now time.Time) ([]byte, error) {
	r.Records = records
	r.UpdatedAt = &now
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}
