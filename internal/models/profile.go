package models

import "time"

// Profile is the application-visible user record, 1:1 with User (same id).
// IsVerified is a cached projection of the latest DoctorVerification status.
type Profile struct {
	ID                string    `gorm:"type:char(36);primaryKey" json:"id"`
	Username          string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	FullName          string    `gorm:"size:100" json:"full_name"`
	Bio               string    `gorm:"type:text" json:"bio"`
	Role              Role      `gorm:"size:16;not null" json:"role"`
	IsVerified        bool      `gorm:"default:false" json:"is_verified"`
	Specialization    *string   `gorm:"size:100" json:"specialization"`
	LicenseNumber     *string   `gorm:"size:100" json:"license_number"`
	Hospital          *string   `gorm:"size:150" json:"hospital"`
	YearsOfExperience *int      `json:"years_of_experience"`
	PhoneNumber       *string   `gorm:"size:30" json:"phone_number"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpdateProfileInput carries the editable profile fields. Username and role
// are immutable after creation.
type UpdateProfileInput struct {
	FullName          string  `json:"full_name" binding:"required"`
	Bio               string  `json:"bio"`
	Specialization    *string `json:"specialization"`
	Hospital          *string `json:"hospital"`
	YearsOfExperience *int    `json:"years_of_experience" binding:"omitempty,min=0,max=60"`
	PhoneNumber       *string `json:"phone_number"`
}

// Author is the denormalized identity attached to posts, comments and
// friend lists at read time.
type Author struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	FullName       string  `json:"full_name"`
	Role           Role    `json:"role"`
	IsVerified     bool    `json:"is_verified"`
	Badge          string  `json:"badge"`
	Specialization *string `json:"specialization,omitempty"`
}

// Specializations is the fixed list a doctor can pick from.
var Specializations = []string{
	"Cardiology",
	"Neurology",
	"Orthopedics",
	"Pediatrics",
	"Psychiatry",
	"Dermatology",
	"General Practice",
	"Surgery",
	"Internal Medicine",
	"Emergency Medicine",
	"Obstetrics & Gynecology",
	"Ophthalmology",
	"Radiology",
	"Anesthesiology",
	"Pathology",
}
