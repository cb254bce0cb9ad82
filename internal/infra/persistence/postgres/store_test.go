package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"labstock/pkg/domain"
)

func TestNewStorePropagatesOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("dial refused")
	})
	defer restore()

	if _, err := NewStore("postgres://example/labstock", nil); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("LABSTOCK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LABSTOCK_TEST_POSTGRES_DSN not set")
	}

	store, err := NewStore(dsn, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	var product domain.Product
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		product, err = tx.CreateProduct(domain.Product{Name: "Multimeter", Brand: "Fluke", Model: "87V", Mode: domain.ModePropertyManaged})
		return err
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	reopened, err := NewStore(dsn, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	_ = reopened.View(context.Background(), func(v domain.TransactionView) error {
		if _, ok := v.FindProduct(product.ID); !ok {
			t.Fatalf("product not restored after reopen")
		}
		return nil
	})
}
