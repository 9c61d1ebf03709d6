package model

// Глобальные роли пользователей.
const (
	UserRoleAdmin = "admin" // суперпользователь, не ограничен рамками компании
	UserRoleUser  = "user"  // обычный пользователь, права определяются членством
)

// User представляет сотрудника, работающего через API (оператор или агент).
type User struct {
	ID           int    `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Name         string `db:"name" json:"name"`
	Role         string `db:"role" json:"role"`
}
