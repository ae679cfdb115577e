package verification

import (
	"context"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// LatestForUsers returns the newest verification row per user id. Users
// without any row are absent from the map.
func LatestForUsers(ctx context.Context, db *gorm.DB, userIDs []string) (map[string]*models.DoctorVerification, error) {
	out := make(map[string]*models.DoctorVerification, len(userIDs))
	userIDs = lo.Uniq(userIDs)
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []models.DoctorVerification
	err := db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id, created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}

	for i := range rows {
		if _, seen := out[rows[i].UserID]; !seen {
			out[rows[i].UserID] = &rows[i]
		}
	}
	return out, nil
}

// AuthorOf builds the denormalized identity of p. IsVerified follows the
// derived badge, not the cached flag.
func AuthorOf(p *models.Profile, latest *models.DoctorVerification) models.Author {
	badge := Derive(p.Role, p.IsVerified, latest)
	return models.Author{
		ID:             p.ID,
		Username:       p.Username,
		FullName:       p.FullName,
		Role:           p.Role,
		IsVerified:     badge == BadgeVerifiedDoctor,
		Badge:          string(badge),
		Specialization: p.Specialization,
	}
}

// Authors loads the author identity of every user id at query time.
func Authors(ctx context.Context, db *gorm.DB, userIDs []string) (map[string]models.Author, error) {
	userIDs = lo.Uniq(userIDs)
	out := make(map[string]models.Author, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var profiles []models.Profile
	if err := db.WithContext(ctx).Where("id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, svcErr.Map(err)
	}

	latest, err := LatestForUsers(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	for i := range profiles {
		out[profiles[i].ID] = AuthorOf(&profiles[i], latest[profiles[i].ID])
	}
	return out, nil
}
