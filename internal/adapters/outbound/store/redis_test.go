package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iacscan/iacscan/internal/adapters/outbound/store"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	addr := setupRedis(t)
	ctx := context.Background()

	s, err := store.NewRedisStore(ctx, logrus.New(), domain.RedisConfig{Addr: addr, Prefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s.WithClock(func() time.Time { return fixedNow }))
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow retry test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := store.NewRedisStore(ctx, logrus.New(), domain.RedisConfig{Addr: "127.0.0.1:1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.List(ctx)
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindPersistence))

	err = s.Insert(ctx, &domain.ScanResult{UUID: "a"})
	require.True(t, domain.IsKind(err, domain.KindPersistence))
}
