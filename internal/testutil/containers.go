// Package testutil starts throwaway infrastructure containers for
// integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/db"
)

const (
	dbUser     = "cart_user"
	dbPassword = "cart_pass"
	dbName     = "cart"

	startupTimeout = 90 * time.Second
)

// StartPostgres launches Postgres, applies the migrations and returns its DSN.
func StartPostgres(t *testing.T) string {
	t.Helper()

	endpoint := start(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     dbUser,
			"POSTGRES_PASSWORD": dbPassword,
			"POSTGRES_DB":       dbName,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(startupTimeout),
	})

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", dbUser, dbPassword, endpoint, dbName)
	require.NoError(t, db.RunMigrations(dsn, zap.NewNop()))
	return dsn
}

// StartRabbitMQ launches RabbitMQ and returns an AMQP URL.
func StartRabbitMQ(t *testing.T) string {
	t.Helper()

	endpoint := start(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(startupTimeout),
	})

	return "amqp://guest:guest@" + endpoint + "/"
}

// StartRedis launches Redis and returns a redis:// URL.
func StartRedis(t *testing.T) string {
	t.Helper()

	endpoint := start(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(startupTimeout),
	})

	return "redis://" + endpoint + "/0"
}

// start runs req and returns host:port of its single exposed port.
func start(t *testing.T, req testcontainers.ContainerRequest) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		_ = c.Terminate(cleanupCtx)
	})

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}
