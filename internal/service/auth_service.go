package service

import (
	"database/sql"
	"fmt"
	"time"

	"tourops/internal/apperr"
	"tourops/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserStore — доступ к пользователям, нужный аутентификации.
type UserStore interface {
	GetByEmail(email string) (*model.User, error)
}

// Claims — полезная нагрузка JWT.
type Claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService отвечает за вход пользователей и проверку JWT.
type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
}

// NewAuthService создает новый сервис аутентификации.
func NewAuthService(users UserStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl}
}

// Login проверяет пару e-mail/пароль и возвращает подписанный JWT.
// Неизвестный e-mail и неверный пароль неразличимы: оба — ErrForbidden.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.users.GetByEmail(email)
	if err == sql.ErrNoRows {
		return "", apperr.ErrForbidden
	}
	if err != nil {
		return "", fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", apperr.ErrForbidden
	}

	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("не удалось подписать токен: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок JWT и возвращает действующее лицо.
func (s *AuthService) ParseToken(tokenString string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Principal{}, apperr.ErrForbidden
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, apperr.ErrForbidden
	}
	return Principal{UserID: claims.UserID, Role: claims.Role}, nil
}
