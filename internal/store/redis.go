package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/clinicalextract/internal/config"
	"github.com/ahrav/clinicalextract/internal/domain"
)

// RedisClient is the subset of *redis.Client the report store needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZRemRangeByScore(ctx context.Context, key, minScore, maxScore string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var (
	_ ReportStore = (*RedisReportStore)(nil)
	_ ReportStore = (*MemoryReportStore)(nil)
)

// RedisReportStore stores JSON-encoded reports under <prefix>run:<run_id> with a
// TTL, plus a sorted-set index of run IDs scored by save time.
type RedisReportStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisClient creates a pooled client from cfg.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisReportStore wraps client. A zero ttl keeps reports forever.
func NewRedisReportStore(client RedisClient, prefix string, ttl time.Duration) *RedisReportStore {
	if prefix == "" {
		prefix = config.DefaultKeyPrefix
	}
	return &RedisReportStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// Ping checks connectivity.
func (s *RedisReportStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisReportStore) reportKey(runID string) string { return s.prefix + "run:" + runID }

func (s *RedisReportStore) indexKey() string { return s.prefix + "runs" }

// Save implements ReportStore.
func (s *RedisReportStore) Save(ctx context.Context, r *domain.EvaluationReport) error {
	if r == nil || r.RunID == "" {
		return ErrMissingRunID
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.RunID, err)
	}
	if err := s.client.Set(ctx, s.reportKey(r.RunID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save report %s: %w", r.RunID, err)
	}

	now := s.now()
	member := redis.Z{Score: float64(now.UnixMilli()), Member: r.RunID}
	if err := s.client.ZAdd(ctx, s.indexKey(), member).Err(); err != nil {
		return fmt.Errorf("index report %s: %w", r.RunID, err)
	}
	if s.ttl > 0 {
		cutoff := strconv.FormatInt(now.Add(-s.ttl).UnixMilli(), 10)
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+cutoff).Err(); err != nil {
			return fmt.Errorf("prune report index: %w", err)
		}
	}
	return nil
}

// Load implements ReportStore.
func (s *RedisReportStore) Load(ctx context.Context, runID string) (*domain.EvaluationReport, error) {
	data, err := s.client.Get(ctx, s.reportKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}

	var r domain.EvaluationReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return &r, nil
}

// List implements ReportStore. Entries whose report expired may linger in
// the index until the next Save prunes them.
func (s *RedisReportStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return ids, nil
}
