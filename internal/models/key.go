package models

import "github.com/nelondlc/license-hub/internal/lib/tier"

// LicenseKey капабилити-токен, выдающий подписку. Переходит из
// неиспользованного состояния в использованное ровно один раз и после
// этого навсегда инертен.
type LicenseKey struct {
	ID               int64     // Внутренний ID строки
	Key              string    // Строка ключа XXXX-XXXX-XXXX, уникальная
	SubscriptionType tier.Tier // Уровень, который выдаёт ключ: Basic, Plus или Lifetime
	Used             bool      // Признак использования
	CreatedAt        int64     // Момент создания, epoch-миллисекунды
	CreatedBy        int64     // ID администратора, создавшего ключ, 0 — неизвестен
	UsedAt           int64     // Момент активации, 0 — не активирован
	UsedBy           int64     // ID пользователя, активировавшего ключ, 0 — не активирован
}

// KeyInfo строка списка ключей в админке: вместо внутренних ID —
// имена создателя и потребителя.
type KeyInfo struct {
	ID               int64  `json:"id"`
	Key              string `json:"key"`
	SubscriptionType string `json:"subscriptionType"`
	Used             bool   `json:"used"`
	CreatedAt        int64  `json:"createdAt"`
	UsedAt           int64  `json:"usedAt,omitempty"`
	CreatedBy        string `json:"createdBy,omitempty"`
	UsedBy           string `json:"usedBy,omitempty"`
}
