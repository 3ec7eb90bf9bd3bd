package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/iacscan/iacscan/internal/domain"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var rjson = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore implements domain.ResultStore and domain.ProjectStore on Redis.
// Each record is a JSON string key; a set per record kind indexes the ids.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
	log    logrus.FieldLogger
}

// NewRedisStore connects to cfg.Addr, retrying the initial ping a few times.
// An unreachable server is logged and the store is still returned: go-redis
// dials again on every command, so operations fail with KindPersistence until
// the server is back.
func NewRedisStore(ctx context.Context, log logrus.FieldLogger, cfg domain.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
	})

	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	},
		backoff.WithMaxTries(3),
		backoff.WithBackOff(backoff.NewConstantBackOff(time.Second)),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warnf("redis ping failed, retrying in %s: %v", d, err)
		}),
	)
	if err != nil {
		log.WithField("addr", cfg.Addr).Warnf("redis is unreachable, persistence calls will fail until it is back: %v", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "iacscan"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
		log:    log.WithField("component", "redis_store"),
	}, nil
}

// WithClock replaces the clock used by AgeInDays.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) key(kind, id string) string { return fmt.Sprintf("%s:%s:%s", s.prefix, kind, id) }
func (s *RedisStore) index(kind string) string   { return fmt.Sprintf("%s:%s", s.prefix, kind) }

func (s *RedisStore) Insert(ctx context.Context, result *domain.ScanResult) error {
	const op = "insert scan result"
	if err := checkID(op, result.UUID); err != nil {
		return err
	}
	return s.put(ctx, op, scansDir, result.UUID, result)
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*domain.ScanResult, error) {
	var r domain.ScanResult
	if err := s.get(ctx, "find scan result", scansDir, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RedisStore) FindByProjectAndID(ctx context.Context, projectID, id string) (*domain.ScanResult, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ProjectID != projectID {
		return nil, domain.NewError(domain.KindNotFound, "find scan result", "no scan result for project "+projectID, id)
	}
	return r, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.del(ctx, "delete scan result", scansDir, id)
}

// List returns every stored result, newest first.
func (s *RedisStore) List(ctx context.Context) ([]*domain.ScanResult, error) {
	var results []*domain.ScanResult
	err := s.each(ctx, "list scan results", scansDir, func(data []byte) error {
		var r domain.ScanResult
		if err := rjson.Unmarshal(data, &r); err != nil {
			return err
		}
		results = append(results, &r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(results)
	return results, nil
}

func (s *RedisStore) AgeInDays(ctx context.Context, id string) (int, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.AgeInDays(s.now())
}

func (s *RedisStore) SaveProject(ctx context.Context, p *domain.Project) error {
	const op = "save project"
	if err := checkID(op, p.ProjectID); err != nil {
		return err
	}
	return s.put(ctx, op, projectsDir, p.ProjectID, p)
}

func (s *RedisStore) FindProject(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	if err := s.get(ctx, "find project", projectsDir, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisStore) ListProjects(ctx context.Context, creatorID string) ([]*domain.Project, error) {
	var projects []*domain.Project
	err := s.each(ctx, "list projects", projectsDir, func(data []byte) error {
		var p domain.Project
		if err := rjson.Unmarshal(data, &p); err != nil {
			return err
		}
		if creatorID == "" || p.CreatorID == creatorID {
			projects = append(projects, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *RedisStore) DeleteProject(ctx context.Context, id string) error {
	return s.del(ctx, "delete project", projectsDir, id)
}

func (s *RedisStore) SaveConfiguration(ctx context.Context, c *domain.ProjectConfiguration) error {
	const op = "save configuration"
	if err := checkID(op, c.ConfigID); err != nil {
		return err
	}
	return s.put(ctx, op, configsDir, c.ConfigID, c)
}

func (s *RedisStore) FindConfiguration(ctx context.Context, id string) (*domain.ProjectConfiguration, error) {
	var c domain.ProjectConfiguration
	if err := s.get(ctx, "find configuration", configsDir, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) put(ctx context.Context, op, kind, id string, v any) error {
	data, err := rjson.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(kind, id), data, 0)
		pipe.SAdd(ctx, s.index(kind), id)
		return nil
	})
	if err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, op, kind, id string, v any) error {
	data, err := s.client.Get(ctx, s.key(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewError(domain.KindNotFound, op, "not found", id)
	}
	if err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	if err := rjson.Unmarshal(data, v); err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	return nil
}

func (s *RedisStore) del(ctx context.Context, op, kind, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(kind, id))
		pipe.SRem(ctx, s.index(kind), id)
		return nil
	})
	if err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	return nil
}

func (s *RedisStore) each(ctx context.Context, op, kind string, fn func(data []byte) error) error {
	ids, err := s.client.SMembers(ctx, s.index(kind)).Result()
	if err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(kind, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return domain.WrapError(domain.KindPersistence, op, err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Index entry without a record; removed concurrently.
			continue
		}
		if err := fn([]byte(str)); err != nil {
			s.log.WithFields(logrus.Fields{"kind": kind, "key": keys[i]}).Warnf("%s: skipping unreadable record: %v", op, err)
		}
	}
	return nil
}
