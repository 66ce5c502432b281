package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func openPostgresStoreForIntegrationTest(t *testing.T) *Store {
	t.Helper()

	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	truncateAllTablesForIntegrationTest(t, store)

	return store
}

// openRawPostgresStoreForIntegrationTest пропускает тест, если база не задана или недоступна.
func openRawPostgresStoreForIntegrationTest(t *testing.T) *Store {
	t.Helper()

	var openErrs []string
	for _, key := range []string{"OMS_TEST_POSTGRES_DSN", "OMS_POSTGRES_DSN"} {
		dsn := strings.TrimSpace(os.Getenv(key))
		if dsn == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		store, err := Open(ctx, dsn)
		cancel()
		if err == nil {
			t.Cleanup(func() {
				_ = store.Close()
			})
			return store
		}
		openErrs = append(openErrs, fmt.Sprintf("%s: %v", key, err))
	}

	if len(openErrs) == 0 {
		t.Skip("OMS_TEST_POSTGRES_DSN is not set")
	}
	t.Skipf("postgres is not available for integration tests: %s", strings.Join(openErrs, " | "))
	return nil
}

func truncateAllTablesForIntegrationTest(t *testing.T, store *Store) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := store.DB().ExecContext(ctx, `
		TRUNCATE TABLE
			outbox_messages,
			timeline_events,
			active_orders,
			completed_orders,
			cancelled_orders
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("truncate integration tables: %v", err)
	}
}
