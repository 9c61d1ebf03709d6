package repository

import (
	"database/sql"
	"fmt"
	"time"

	"tourops/internal/model"

	"github.com/jmoiron/sqlx"
)

// TokenRepository обеспечивает доступ к токенам заявок поставщикам.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository создает новый репозиторий токенов.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// GetByID возвращает токен по его значению.
func (r *TokenRepository) GetByID(id string) (*model.RequestToken, error) {
	var t model.RequestToken
	if err := r.db.Get(&t, "SELECT * FROM request_tokens WHERE id=$1", id); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindOpen возвращает открытый токен пары (шаг, поставщик) или sql.ErrNoRows.
func (r *TokenRepository) FindOpen(stepID, supplierID int, now time.Time) (*model.RequestToken, error) {
	var t model.RequestToken
	err := r.db.Get(&t, `SELECT * FROM request_tokens
	        WHERE step_id=$1 AND supplier_id=$2 AND response IS NULL AND expires_at > $3`,
		stepID, supplierID, now)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EnsureOpen возвращает открытый токен пары, создавая его при отсутствии.
// Возвращает (токен, true) при создании нового и (токен, false) при повторном
// использовании уже открытого. Просроченные неотвеченные токены пары перед
// выпуском нового помечаются ответом "cancelled", чтобы частичный уникальный
// индекс по открытым токенам пропустил вставку. Гонка одновременных вызовов
// разрешается через ON CONFLICT DO NOTHING с повторной выборкой.
func (r *TokenRepository) EnsureOpen(stepID, supplierID int, id string, now time.Time, ttl time.Duration) (*model.RequestToken, bool, error) {
	if t, err := r.FindOpen(stepID, supplierID, now); err == nil {
		return t, false, nil
	} else if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("ошибка при поиске открытого токена: %w", err)
	}

	// Гасим просроченные неотвеченные токены пары.
	_, err := r.db.Exec(`UPDATE request_tokens SET response=$1, responded_at=$2
	        WHERE step_id=$3 AND supplier_id=$4 AND response IS NULL AND expires_at <= $2`,
		model.ResponseCancelled, now, stepID, supplierID)
	if err != nil {
		return nil, false, fmt.Errorf("не удалось погасить просроченные токены: %w", err)
	}

	res, err := r.db.Exec(`INSERT INTO request_tokens (id, step_id, supplier_id, channel, issued_at, expires_at)
	        VALUES ($1, $2, $3, $4, $5, $6)
	        ON CONFLICT (step_id, supplier_id) WHERE response IS NULL DO NOTHING`,
		id, stepID, supplierID, model.ChannelLink, now, now.Add(ttl))
	if err != nil {
		return nil, false, fmt.Errorf("не удалось выпустить токен: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Параллельный вызов успел первым — возвращаем его токен.
		t, err := r.FindOpen(stepID, supplierID, now)
		if err != nil {
			return nil, false, fmt.Errorf("токен пары не найден после гонки вставки: %w", err)
		}
		return t, false, nil
	}
	t, err := r.GetByID(id)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// MarkNotified фиксирует время первой успешной отправки уведомления.
func (r *TokenRepository) MarkNotified(id string, at time.Time) error {
	_, err := r.db.Exec("UPDATE request_tokens SET notified_at=$1 WHERE id=$2 AND notified_at IS NULL", at, id)
	if err != nil {
		return fmt.Errorf("не удалось отметить отправку уведомления: %w", err)
	}
	return nil
}

// CancelOpen гасит открытый токен пары терминальным ответом "cancelled".
// Используется при снятии поставщика с шага.
func (r *TokenRepository) CancelOpen(stepID, supplierID int, now time.Time) error {
	_, err := r.db.Exec(`UPDATE request_tokens SET response=$1, responded_at=$2
	        WHERE step_id=$3 AND supplier_id=$4 AND response IS NULL`,
		model.ResponseCancelled, now, stepID, supplierID)
	if err != nil {
		return fmt.Errorf("не удалось отозвать токен: %w", err)
	}
	return nil
}

// DecisionResult — результат атомарного применения ответа поставщика.
type DecisionResult struct {
	// Applied: ответ записан в токен (условное обновление выиграло гонку).
	Applied bool
	// MovedOn: шаг уже ушел из ожидания, статус не менялся, ответ лишь зафиксирован.
	MovedOn bool
}

// ApplyDecision атомарно записывает ответ в токен и, если шаг все еще ждет
// подтверждения, переводит его в новый статус с записью аудита и лога статусов.
// Все изменения выполняются в одной транзакции: либо фиксируются целиком, либо нет.
// Проигравший гонку повторного ответа получает Applied=false (условие response IS NULL).
func (r *TokenRepository) ApplyDecision(tok *model.RequestToken, response, channel string, toStatus string, now time.Time) (*DecisionResult, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE request_tokens SET response=$1, responded_at=$2, response_channel=$3
	        WHERE id=$4 AND response IS NULL`, response, now, channel, tok.ID)
	if err != nil {
		return nil, fmt.Errorf("не удалось записать ответ в токен: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &DecisionResult{Applied: false}, tx.Commit()
	}

	// Блокируем шаг и проверяем, что он все еще ждет подтверждения.
	var sc model.StepContext
	err = tx.Get(&sc, `
	        SELECT s.*, t.id AS tour_id, t.tenant_id, t.name AS tour_name,
	               c.name AS tenant_name,
	               to_char(d.day_date, 'DD.MM.YYYY') AS day_date_text
	        FROM steps s
	        JOIN days d ON s.day_id = d.id
	        JOIN tours t ON d.tour_id = t.id
	        JOIN tenants c ON t.tenant_id = c.id
	        WHERE s.id=$1 FOR UPDATE OF s`, tok.StepID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить шаг токена: %w", err)
	}

	if sc.Status != model.StepStatusAwaiting {
		// Оператор уже перевел шаг сам: ответ сохранен для истории, статус не трогаем.
		return &DecisionResult{Applied: true, MovedOn: true}, tx.Commit()
	}

	if _, err := tx.Exec("UPDATE steps SET status=$1 WHERE id=$2", toStatus, tok.StepID); err != nil {
		return nil, fmt.Errorf("не удалось перевести статус шага: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO audit_events (tenant_id, tour_id, step_id, action, old_value, new_value, meta, actor, created_at)
	        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sc.TenantID, sc.TourID, sc.ID, model.AuditStatusChanged, sc.Status, toStatus,
		model.AuditMeta{Channel: channel}, model.ActorSystem, now)
	if err != nil {
		return nil, fmt.Errorf("не удалось записать событие аудита: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO step_status_log (step_id, old_status, new_status, actor, reason, created_at)
	        VALUES ($1, $2, $3, $4, $5, $6)`,
		sc.ID, sc.Status, toStatus, model.ActorSystem, "", now)
	if err != nil {
		return nil, fmt.Errorf("не удалось записать лог статусов: %w", err)
	}
	return &DecisionResult{Applied: true}, tx.Commit()
}

// ListByStep возвращает токены шага, новые первыми.
func (r *TokenRepository) ListByStep(stepID int) ([]model.RequestToken, error) {
	tokens := []model.RequestToken{}
	err := r.db.Select(&tokens, "SELECT * FROM request_tokens WHERE step_id=$1 ORDER BY issued_at DESC", stepID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении токенов шага: %w", err)
	}
	return tokens, nil
}

// CountOpen считает открытые токены по всей базе.
func (r *TokenRepository) CountOpen(now time.Time) (int, error) {
	var n int
	err := r.db.Get(&n, "SELECT COUNT(*) FROM request_tokens WHERE response IS NULL AND expires_at > $1", now)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчете открытых токенов: %w", err)
	}
	return n, nil
}

// CountExpired считает просроченные токены без ответа.
func (r *TokenRepository) CountExpired(now time.Time) (int, error) {
	var n int
	err := r.db.Get(&n, "SELECT COUNT(*) FROM request_tokens WHERE response IS NULL AND expires_at <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчете просроченных токенов: %w", err)
	}
	return n, nil
}
