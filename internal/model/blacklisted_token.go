package model

import "time"

// BlacklistedToken marks a refresh token id as revoked until it expires.
type BlacklistedToken struct {
	ID        uint      `gorm:"primaryKey"`
	JTI       string    `gorm:"column:jti;type:varchar(64);uniqueIndex;not null"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (BlacklistedToken) TableName() string {
	return "blacklisted_tokens"
}

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Author{},
		&Book{},
		&Loan{},
		&BlacklistedToken{},
	}
}
