// Package apperr определяет таксономию ошибок бизнес-операций.
// Обработчики HTTP и бот переводят их в коды ответов и формулировки,
// сами сервисы возвращают только эти категории.
package apperr

import "errors"

var (
	// ErrNotFound — ресурс отсутствует или принадлежит чужой компании.
	// Оба случая неразличимы снаружи, чтобы не раскрывать существование данных.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — пользователь опознан, но не имеет нужной роли или членства.
	ErrForbidden = errors.New("доступ запрещен")
	// ErrConflict — повторный ответ по токену, дубликат назначения и т.п.
	ErrConflict = errors.New("конфликт состояния")
	// ErrExpired — срок действия токена или кода истек.
	ErrExpired = errors.New("срок действия истек")
	// ErrValidation — некорректные входные данные (недопустимый статус, пустая причина).
	ErrValidation = errors.New("некорректные данные")
)
