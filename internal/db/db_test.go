package db

import (
	"testing"

	"vapex/internal/config"
)

func TestInitializeRequiresURL(t *testing.T) {
	t.Parallel()

	db, err := Initialize(config.DatabaseConfig{URL: ""})
	if err == nil {
		t.Fatal("expected error when database URL is empty")
	}
	if db != nil {
		t.Fatal("expected returned db handle to be nil on error")
	}
}

func TestAutoMigrateRejectsNilDatabase(t *testing.T) {
	t.Parallel()

	if err := AutoMigrate(nil); err == nil {
		t.Fatal("expected error when database handle is nil")
	}
}

func TestOpenSQLiteMigratesEveryModel(t *testing.T) {
	t.Parallel()

	sqliteDB, err := OpenSQLite("file:db_pkg_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := sqliteDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, model := range Models() {
		if !sqliteDB.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
	if !sqliteDB.Migrator().HasIndex("votes", "idx_votes_user_recipe") {
		t.Fatal("expected unique vote index")
	}
}

func TestOpenSQLiteRequiresDSN(t *testing.T) {
	t.Parallel()

	if _, err := OpenSQLite(" "); err == nil {
		t.Fatal("expected error for blank dsn")
	}
}

func TestConfigurePropagatesInitializationError(t *testing.T) {
	t.Parallel()

	if _, err := Configure(config.DatabaseConfig{}); err == nil {
		t.Fatal("expected configuration error when initialize fails")
	}
}

func TestMustConfigurePanicsOnError(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when configuration fails")
		}
	}()

	MustConfigure(config.DatabaseConfig{})
}
