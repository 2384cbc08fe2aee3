package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert hits a unique index.
var ErrDuplicateKey = errors.New("duplicate key")

// IsDuplicateKey recognises unique violations from both postgres and sqlite.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
