// Package keygen генерирует лицензионные ключи формата XXXX-XXXX-XXXX
// на основе криптографически стойкого источника случайности.
package keygen

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Parts количество групп в ключе, PartLen — длина одной группы в hex-символах.
const (
	Parts   = 3
	PartLen = 4
)

// New возвращает новый лицензионный ключ вида XXXX-XXXX-XXXX.
func New() (string, error) {
	const op = "keygen.New"

	parts := make([]string, 0, Parts)
	for i := 0; i < Parts; i++ {
		buf := make([]byte, PartLen/2)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		parts = append(parts, strings.ToUpper(fmt.Sprintf("%x", buf)))
	}
	return strings.Join(parts, "-"), nil
}
