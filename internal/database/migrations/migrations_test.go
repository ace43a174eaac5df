package migrations

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/order/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestEmbeddedSource_PairsUpAndDown(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	var versions []uint
	version, err := src.First()
	for err == nil {
		versions = append(versions, version)

		up, _, upErr := src.ReadUp(version)
		require.NoError(t, upErr, "version %d has no up script", version)
		body, _ := io.ReadAll(up)
		up.Close()
		assert.Contains(t, strings.ToUpper(string(body)), "CREATE TABLE")

		down, _, downErr := src.ReadDown(version)
		require.NoError(t, downErr, "version %d has no down script", version)
		down.Close()

		version, err = src.Next(version)
	}
	assert.Equal(t, []uint{1, 2}, versions)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.AutoMigrate)
	assert.Empty(t, opts.MigrationsDir)
}

func TestRunMigrations_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer pg.Terminate(ctx)

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())

	runner := NewRunner(dsn, DefaultOptions(), logger.NewDiscard())
	require.NoError(t, runner.RunMigrations())
	// second run is a no-op
	require.NoError(t, runner.RunMigrations())
	require.NoError(t, runner.Close())

	bunDB, err := db.Open(dsn)
	require.NoError(t, err)
	defer bunDB.Close()
	store := &db.DB{Bun: bunDB}

	now := time.Now().UTC().Truncate(time.Millisecond)
	o := models.Order{
		OrderID:          "ORD-1-1",
		Game:             "EA Sports FC 25",
		Platform:         models.PlatformPC,
		AccountType:      models.AccountFull,
		Price:            70,
		CustomerPhone:    "01012345678",
		PaymentMethod:    models.PaymentInstaPay,
		PaymentReference: "merchant@instapay",
		Status:           models.StatusPending,
		CreatedAt:        now,
		LastUpdated:      now,
	}
	require.NoError(t, store.SaveOrder(ctx, o))
	second := o
	second.OrderID = "ORD-2-2"
	require.NoError(t, store.SaveOrder(ctx, second))

	last, err := store.LastOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2-2", last.OrderID)

	stats, err := store.AggregateStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 140, stats.TotalRevenue)
}
