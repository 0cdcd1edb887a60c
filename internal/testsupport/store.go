package testsupport

import (
	"testing"

	"notebrief/internal/config"
	"notebrief/internal/queue"
)

// MustOpenStore opens the ledger for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
