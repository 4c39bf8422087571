// Package tier реализует чистую логику уровней подписки: нормализацию,
// срок действия по умолчанию и проверку активности. Никакого I/O —
// все функции детерминированы относительно переданного момента времени.
//
// Все метки времени — целые epoch-миллисекунды. Ноль зарезервирован
// как значение "бессрочно" и никогда не является реальным моментом.
package tier

import (
	"strings"
	"time"
)

// Tier уровень подписки пользователя.
type Tier string

// Канонические уровни подписки.
const (
	None  Tier = "None"
	Basic Tier = "Basic"
	Plus  Tier = "Plus"
	Elite Tier = "Elite"
	// Lifetime — тип ключа, выдающий бессрочный Elite.
	Lifetime Tier = "Lifetime"
)

// NoExpiry зарезервированное значение subscription_expires_at,
// означающее "никогда не истекает".
const NoExpiry int64 = 0

// Длительность подписки по уровням.
const (
	basicDuration = 30 * 24 * time.Hour
	plusDuration  = 90 * 24 * time.Hour
)

// Normalize приводит произвольную строку к каноническому уровню.
// Сравнение регистронезависимое, пустая строка считается None.
// Для неизвестных значений возвращает ("", false).
func Normalize(input string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "none":
		return None, true
	case "basic":
		return Basic, true
	case "plus":
		return Plus, true
	case "elite":
		return Elite, true
	case "lifetime":
		return Lifetime, true
	default:
		return "", false
	}
}

// DefaultExpiry возвращает момент истечения подписки уровня t,
// активированной в момент now: Basic — 30 дней, Plus — 90 дней,
// Elite/Lifetime и None — NoExpiry.
func DefaultExpiry(t Tier, now time.Time) int64 {
	switch t {
	case Basic:
		return now.Add(basicDuration).UnixMilli()
	case Plus:
		return now.Add(plusDuration).UnixMilli()
	default:
		return NoExpiry
	}
}

// IsActive проверяет, активна ли подписка уровня t со сроком expiresAt
// в момент now. Единственный источник истины для всех проверок доступа:
// None всегда неактивен, NoExpiry означает бессрочную подписку,
// иначе подписка активна строго до expiresAt (в сам момент истечения
// она уже неактивна).
func IsActive(t Tier, expiresAt int64, now time.Time) bool {
	if t == None || t == "" {
		return false
	}
	if expiresAt == NoExpiry {
		return true
	}
	return expiresAt > now.UnixMilli()
}
