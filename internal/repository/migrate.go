package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tourops/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ApplyMigrations выполняет SQL-файлы по шаблону в алфавитном порядке,
// каждый в собственной транзакции. Файл с ошибкой откатывается и
// пропускается, остальные применяются дальше.
func ApplyMigrations(db *sqlx.DB, pattern string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("не удалось прочитать список миграций: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.L().Warn("Миграция не прочитана", zap.String("file", file), zap.Error(err))
			continue
		}
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("не удалось начать транзакцию миграции: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			logger.L().Warn("Миграция завершилась ошибкой", zap.String("file", file), zap.Error(err))
			continue
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("не удалось зафиксировать миграцию %s: %w", file, err)
		}
		logger.L().Info("Миграция применена", zap.String("file", file))
	}
	return nil
}
