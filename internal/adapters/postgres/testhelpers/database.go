package testhelpers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/lunar/payments-plugin-shopware/db"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/postgres"
	"github.com/lunar/payments-plugin-shopware/internal/config"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestDatabase struct {
	Container testcontainers.Container
	DB        *postgres.DB
	Config    *config.DatabaseConfig
}

func SetupTestDatabase(t *testing.T) *TestDatabase {
	if testing.Short() {
		t.Skip("skipping database tests in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbConfig := &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Name:            "testdb",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	database, err := postgres.Connect(ctx, dbConfig, logger)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, db.Migrations))

	return &TestDatabase{
		Container: container,
		DB:        database,
		Config:    dbConfig,
	}
}

func (td *TestDatabase) Cleanup(t *testing.T) {
	td.DB.Close()
	require.NoError(t, td.Container.Terminate(context.Background()))
}

func (td *TestDatabase) CleanTables(t *testing.T) {
	_, err := td.DB.Pool.Exec(context.Background(),
		"TRUNCATE TABLE lunar_transactions, order_transactions, orders, lunar_settings, state_machine_history RESTART IDENTITY CASCADE;")
	require.NoError(t, err)
}

// InsertOrder writes o and its transactions the way the shop would.
func (td *TestDatabase) InsertOrder(t *testing.T, o *domain.Order) {
	ctx := context.Background()

	metadata := o.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	lineItems := o.LineItems
	if lineItems == nil {
		lineItems = []domain.LineItem{}
	}

	_, err := td.DB.Pool.Exec(ctx, `
		INSERT INTO orders (id, order_number, sales_channel_id, currency, amount_total, state,
			metadata, customer, line_items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.Number, o.SalesChannelID, o.Currency, o.AmountTotal, o.State,
		metadata, o.Customer, lineItems, o.CreatedAt,
	)
	require.NoError(t, err)

	for _, tx := range o.Transactions {
		_, err := td.DB.Pool.Exec(ctx, `
			INSERT INTO order_transactions (id, order_id, payment_method_id, state, amount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			tx.ID, o.ID, tx.PaymentMethodID, tx.State, tx.Amount, tx.CreatedAt,
		)
		require.NoError(t, err)
	}
}
