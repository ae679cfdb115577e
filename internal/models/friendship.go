package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is a directed request edge. PairKey holds the two ids in sorted
// order, so the unique index allows one edge per unordered pair.
type Friendship struct {
	ID          string           `gorm:"type:char(36);primaryKey" json:"id"`
	RequesterID string           `gorm:"type:char(36);not null;index" json:"requester_id"`
	ReceiverID  string           `gorm:"type:char(36);not null;index" json:"receiver_id"`
	PairKey     string           `gorm:"size:80;not null;uniqueIndex" json:"-"`
	Status      FriendshipStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.PairKey = PairKey(f.RequesterID, f.ReceiverID)
	return nil
}

// PairKey returns the order-independent key of two user ids.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

type FriendRequestInput struct {
	ReceiverID string `json:"receiver_id" binding:"required,uuid"`
}
