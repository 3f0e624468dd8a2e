package db

import "time"

// ProviderCookieModel stores one session cookie per provider.
type ProviderCookieModel struct {
	ID        uint   `gorm:"primarykey"`
	Provider  string `gorm:"not null;uniqueIndex"`
	Value     string `gorm:"not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProviderCookieModel) TableName() string {
	return "provider_cookies"
}
