package verification

import (
	"context"
	"strings"

	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"

	"gorm.io/gorm"
)

// NormalizeStatus maps any stored status value onto the closed enum. The
// second result is false when the value was not recognized at all.
func NormalizeStatus(raw string) (models.VerificationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "unverified":
		return models.StatusUnverified, true
	case "pending":
		return models.StatusPending, true
	case "approved", "verified":
		return models.StatusVerified, true
	case "rejected":
		return models.StatusRejected, true
	default:
		return models.StatusUnverified, false
	}
}

var canonicalStatuses = []models.VerificationStatus{
	models.StatusUnverified,
	models.StatusPending,
	models.StatusVerified,
	models.StatusRejected,
}

// MigrateLegacyStatuses rewrites stored statuses outside the enum. Unknown
// values fall back to unverified so the doctor is asked to resubmit.
func MigrateLegacyStatuses(ctx context.Context, db *gorm.DB) (int64, error) {
	var legacy []models.DoctorVerification
	err := db.WithContext(ctx).
		Select("id", "status").
		Where("status NOT IN ? OR status IS NULL", canonicalStatuses).
		Find(&legacy).Error
	if err != nil {
		return 0, err
	}

	var rewritten int64
	for _, row := range legacy {
		status, known := NormalizeStatus(string(row.Status))
		if !known {
			logger.Warn("unknown verification status", "id", row.ID, "status", row.Status)
		}
		res := db.WithContext(ctx).Model(&models.DoctorVerification{}).
			Where("id = ?", row.ID).
			UpdateColumn("status", status)
		if res.Error != nil {
			return rewritten, res.Error
		}
		rewritten += res.RowsAffected
	}

	if rewritten > 0 {
		logger.Info("legacy verification statuses normalized", "rows", rewritten)
	}
	return rewritten, nil
}
