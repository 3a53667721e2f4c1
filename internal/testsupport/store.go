package testsupport

import (
	"context"
	"testing"

	"lightsd-formula/internal/config"
	"lightsd-formula/internal/receipts"
)

// MustOpenReceipts opens the receipts store named by cfg and registers cleanup.
func MustOpenReceipts(t testing.TB, cfg *config.Config) *receipts.Store {
	t.Helper()

	store, err := receipts.Open(cfg.Paths.ReceiptsDB)
	if err != nil {
		t.Fatalf("receipts.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginReceipt records a running receipt for cfg's formula.
func BeginReceipt(t testing.TB, store *receipts.Store, cfg *config.Config) receipts.Receipt {
	t.Helper()

	r, err := store.Begin(context.Background(), receipts.Receipt{
		Formula:    cfg.Formula.Name,
		Version:    cfg.Formula.Version,
		SourceKind: cfg.Formula.Source,
		Prefix:     cfg.Paths.Prefix,
		BuildType:  cfg.Build.BuildType,
	})
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return r
}
