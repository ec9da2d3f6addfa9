package testsupport

import (
	"context"
	"testing"

	"trimreview/internal/config"
	"trimreview/internal/instruction"
	"trimreview/internal/store"
)

// Identities matching the users seeded by NewConfig.
var (
	Creator  = instruction.Identity{Name: "casey", Role: instruction.RoleCreator}
	Approver = instruction.Identity{Name: "morgan", Role: instruction.RoleApprover}
	Admin    = instruction.Identity{Name: "agent", Role: instruction.RoleAdmin}
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// Submit creates a pending instruction as the seeded creator.
func Submit(t testing.TB, st *store.Store, title string) instruction.Instruction {
	t.Helper()

	rec, err := st.Create(context.Background(), instruction.Draft{
		Title:       title,
		Description: "trim " + title,
	}, Creator)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return rec
}
