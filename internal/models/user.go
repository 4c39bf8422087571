// Package models содержит доменные структуры: пользователя, лицензионный ключ
// и форумные посты. Все метки времени хранятся целыми epoch-миллисекундами,
// ноль в subscription_expires_at означает бессрочную подписку.
package models

import (
	"time"

	"github.com/nelondlc/license-hub/internal/lib/tier"
)

// User представляет зарегистрированного пользователя системы.
// ID — внутренний суррогатный ключ хранилища, наружу не отдаётся.
// UID — внешний клиентский идентификатор, уникальный и неизменяемый.
type User struct {
	ID                  int64     // Внутренний ID строки в хранилище
	UID                 int64     // Внешний клиентский идентификатор
	Username            string    // Имя пользователя (уникальное)
	Email               string    // Электронная почта (уникальная)
	PasswordHash        string    // Хэш пароля пользователя
	AvatarURL           string    // Ссылка на аватар, может быть пустой
	IsAdmin             bool      // Признак администратора
	LicenseKey          string    // Последний активированный ключ (информационно)
	CreatedAt           int64     // Момент регистрации, epoch-миллисекунды
	LastLogin           int64     // Момент последнего входа, 0 — не входил
	SubscriptionTier    tier.Tier // Уровень подписки
	SubscriptionExpires int64     // Момент истечения подписки, 0 — бессрочно
	HWID                string    // Привязка к устройству, пустая — не привязан
}

// PublicUser данные пользователя, отдаваемые наружу через API.
type PublicUser struct {
	UID                 int64  `json:"uid"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	AvatarURL           string `json:"avatarUrl,omitempty"`
	IsAdmin             bool   `json:"isAdmin"`
	LicenseKey          string `json:"licenseKey,omitempty"`
	CreatedAt           int64  `json:"createdAt"`
	LastLogin           int64  `json:"lastLogin,omitempty"`
	SubscriptionTier    string `json:"subscriptionTier"`
	SubscriptionExpires int64  `json:"subscriptionExpiresAt"`
	SubscriptionActive  bool   `json:"subscriptionActive"`
	HWID                string `json:"hwid,omitempty"`
}

// Public конвертирует пользователя в представление для API,
// вычисляя активность подписки на момент now.
func (u *User) Public(now time.Time) PublicUser {
	t := u.SubscriptionTier
	if t == "" {
		t = tier.None
	}
	return PublicUser{
		UID:                 u.UID,
		Username:            u.Username,
		Email:               u.Email,
		AvatarURL:           u.AvatarURL,
		IsAdmin:             u.IsAdmin,
		LicenseKey:          u.LicenseKey,
		CreatedAt:           u.CreatedAt,
		LastLogin:           u.LastLogin,
		SubscriptionTier:    string(t),
		SubscriptionExpires: u.SubscriptionExpires,
		SubscriptionActive:  tier.IsActive(t, u.SubscriptionExpires, now),
		HWID:                u.HWID,
	}
}

// SubscriptionView срез состояния подписки для конечной точки /me/subscription.
type SubscriptionView struct {
	Tier      string `json:"tier"`
	ExpiresAt int64  `json:"expiresAt"`
	Active    bool   `json:"active"`
}
