package model

import "time"

// User はマーケットプレイスの利用者を表す。
// プロフィールは外部認証プロバイダーから同期される。
type User struct {
	ID        string
	Email     string
	Name      string
	ImageURL  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部認証プロバイダーのユーザーIDと内部ユーザーIDの紐付けを表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// ProviderClerk は既定の外部認証プロバイダー名。
const ProviderClerk = "clerk"
