package repository

import (
	"path/filepath"
	"testing"
)

func TestApplyMigrationsNoFiles(t *testing.T) {
	// Без подходящих файлов база не трогается вовсе.
	dir := t.TempDir()
	if err := ApplyMigrations(nil, filepath.Join(dir, "*.sql")); err != nil {
		t.Fatalf("ApplyMigrations без файлов = %v, ожидался nil", err)
	}
}

func TestApplyMigrationsBadPattern(t *testing.T) {
	if err := ApplyMigrations(nil, "["); err == nil {
		t.Fatal("ApplyMigrations с некорректным шаблоном должен вернуть ошибку")
	}
}
