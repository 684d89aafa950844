package surrealdb

import (
	"context"
	"testing"

	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/rtirumala2025/investx/internal/common"
	tcommon "github.com/rtirumala2025/investx/tests/containers"
)

// testStore starts the shared SurrealDB container and returns a Store bound
// to a unique database per test for isolation.
func testStore(t *testing.T) *Store {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	db, err := surreal.New(sc.Address())
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": tcommon.SurrealUser,
		"pass": tcommon.SurrealPass,
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	if err := db.Use(ctx, "investx_test", tcommon.DatabaseName(t)); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	s := newStoreWithDB(db, testLogger())
	if err := s.defineTables(ctx); err != nil {
		t.Fatalf("define tables: %v", err)
	}
	return s
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
