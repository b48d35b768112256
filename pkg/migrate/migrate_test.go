package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/db"
	"gorm.io/driver/sqlite"
)

func TestValidateEmbedded(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"m/1_init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"m/20260101000000_init.sql": {Data: []byte("-- +goose Up\n")},
		},
		"duplicate version": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"empty": {
			"m/README.md": {Data: []byte("nothing")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ValidateFS(fsys, "m"); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestMaybeAutoMigrateCreatesCredentialsTable(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client := db.Wrap(conn, db.DriverSQLite)
	ctx := context.Background()
	if err := MaybeAutoMigrate(ctx, config.DBConfig{AutoMigrate: true}, nil, client); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if !conn.Migrator().HasTable("credentials") {
		t.Fatal("expected credentials table to exist")
	}

	version, err := Version(sqlDB, client.GooseDialect())
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if version != 20260901120000 {
		t.Fatalf("unexpected version %d", version)
	}
}

func TestMaybeAutoMigrateDisabled(t *testing.T) {
	if err := MaybeAutoMigrate(context.Background(), config.DBConfig{AutoMigrate: false}, nil, nil); err != nil {
		t.Fatalf("expected noop, got %v", err)
	}
}
