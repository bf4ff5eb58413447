package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Invite is a single-use signup code. Consumption is a conditional
// used=false→true update so concurrent redemptions cannot both win.
type Invite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Code      string    `gorm:"uniqueIndex;not null;size:64" json:"code"`
	Role      Role      `gorm:"not null;size:20" json:"role"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	UsedBy    *uint     `json:"used_by"`
	CreatedBy uint      `gorm:"not null" json:"created_by"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

func GenerateInviteCode() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (i *Invite) IsValid() bool {
	return !i.Used && time.Now().Before(i.ExpiresAt)
}
