package verification

import (
	"fmt"

	"aigyoo-backend/internal/models"
)

// Badge is the renderable trust state of a profile.
type Badge string

const (
	BadgePatient          Badge = "patient"
	BadgeUnverifiedDoctor Badge = "doctor_unverified"
	BadgePendingDoctor    Badge = "doctor_pending"
	BadgeVerifiedDoctor   Badge = "doctor_verified"
	BadgeRejectedDoctor   Badge = "doctor_rejected"
)

// Derive computes the badge from the role, the cached is_verified flag and
// the latest verification row. The latest status always wins over the flag.
func Derive(role models.Role, isVerified bool, latest *models.DoctorVerification) Badge {
	if role != models.RoleDoctor {
		return BadgePatient
	}
	if latest == nil {
		return BadgeUnverifiedDoctor
	}

	status, _ := NormalizeStatus(string(latest.Status))
	switch status {
	case models.StatusPending:
		return BadgePendingDoctor
	case models.StatusVerified:
		return BadgeVerifiedDoctor
	case models.StatusRejected:
		return BadgeRejectedDoctor
	default:
		return BadgeUnverifiedDoctor
	}
}

// Display is what a client renders for a badge.
type Display struct {
	Badge       Badge  `json:"badge"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Verified    bool   `json:"verified"`
	CanSubmit   bool   `json:"can_submit"`
}

// Render returns the display of b. Every badge has exactly one case.
func Render(b Badge) Display {
	switch b {
	case BadgePatient:
		return Display{Badge: b, Label: "Patient"}
	case BadgeUnverifiedDoctor:
		return Display{
			Badge:       b,
			Label:       "Unverified Doctor",
			Description: "Upload your doctor ID to get verified.",
			CanSubmit:   true,
		}
	case BadgePendingDoctor:
		return Display{
			Badge:       b,
			Label:       "Verification Pending",
			Description: "Your doctor ID is under review.",
			CanSubmit:   true,
		}
	case BadgeVerifiedDoctor:
		return Display{
			Badge:       b,
			Label:       "Verified Doctor",
			Description: "Your credentials have been verified.",
			Verified:    true,
			CanSubmit:   true,
		}
	case BadgeRejectedDoctor:
		return Display{
			Badge:       b,
			Label:       "Verification Rejected",
			Description: "Your verification was rejected. Please upload a clearer doctor ID.",
			CanSubmit:   true,
		}
	}
	panic(fmt.Sprintf("verification: unknown badge %q", string(b)))
}
