package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationStatus is the closed set of doctor trust states. Legacy values
// ("none", "approved") are rewritten at startup, see verification.NormalizeStatus.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
	StatusRejected   VerificationStatus = "rejected"
)

// DoctorVerification is one submission of a doctor ID image. The row with the
// newest created_at is authoritative for a user.
type DoctorVerification struct {
	ID               string             `gorm:"type:char(36);primaryKey" json:"id"`
	UserID           string             `gorm:"type:char(36);not null;index:idx_verification_user_created,priority:1" json:"user_id"`
	DoctorIDImageURL string             `gorm:"column:doctor_id_image_url;size:512" json:"doctor_id_image_url"`
	Status           VerificationStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	SubmittedAt      *time.Time         `json:"submitted_at"`
	VerifiedAt       *time.Time         `json:"verified_at"`
	ReviewedBy       *string            `gorm:"type:char(36)" json:"reviewed_by,omitempty"`
	CreatedAt        time.Time          `gorm:"index:idx_verification_user_created,priority:2" json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (v *DoctorVerification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// ReviewInput is the admin decision on a pending verification.
type ReviewInput struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
}
