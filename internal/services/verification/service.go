// Package verification drives the doctor verification workflow: upload,
// pending review, admin decision and badge derivation.
package verification

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/queue"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/internal/storage"
	"aigyoo-backend/pkg/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxUploadSize is the largest accepted verification file.
const MaxUploadSize = 5 << 20

const (
	MsgMissingFile  = "Please upload your Doctor ID image"
	MsgTooLarge     = "Image size must be less than 5MB"
	MsgNotAnImage   = "Please select an image file"
	MsgDoctorsOnly  = "Only doctors can submit a verification"
	MsgSubmitted    = "Verification submitted successfully"
	msgUploadFailed = "Failed to upload file, please try again"
	msgSaveFailed   = "Failed to save verification, please try again"
)

// Upload is a verification file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Data     []byte
	// AllowPDF accepts application/pdf next to images.
	AllowPDF bool
}

// ValidateUpload checks size and content type and returns the detected MIME
// type. It runs before any blob or store call.
func ValidateUpload(u Upload) (string, error) {
	if u.Size == 0 && len(u.Data) == 0 {
		return "", svcErr.Validation(MsgMissingFile)
	}
	if u.Size > MaxUploadSize || len(u.Data) > MaxUploadSize {
		return "", svcErr.Validation(MsgTooLarge)
	}

	mt := mimetype.Detect(u.Data)
	switch {
	case strings.HasPrefix(mt.String(), "image/"):
		return mt.String(), nil
	case u.AllowPDF && mt.Is("application/pdf"):
		return mt.String(), nil
	default:
		return "", svcErr.Validation(MsgNotAnImage)
	}
}

type Service struct {
	db          *gorm.DB
	blobs       storage.BlobStore
	reviews     queue.ReviewQueue
	notifier    utils.Notifier
	feed        realtime.Feed
	notifyEmail string
	bucket      string
	now         func() time.Time
}

type Options struct {
	DB          *gorm.DB
	Blobs       storage.BlobStore
	Reviews     queue.ReviewQueue
	Notifier    utils.Notifier
	Feed        realtime.Feed
	NotifyEmail string
	Bucket      string
}

func NewService(opts Options) *Service {
	s := &Service{
		db:          opts.DB,
		blobs:       opts.Blobs,
		reviews:     opts.Reviews,
		notifier:    opts.Notifier,
		feed:        opts.Feed,
		notifyEmail: opts.NotifyEmail,
		bucket:      opts.Bucket,
		now:         time.Now,
	}
	if s.reviews == nil {
		s.reviews = queue.NopQueue{}
	}
	if s.notifier == nil {
		s.notifier = utils.NopNotifier{}
	}
	return s
}

// Submit uploads a doctor ID and moves the latest verification to pending.
// An upload failure leaves the store untouched. A store failure after the
// upload leaves the blob orphaned.
func (s *Service) Submit(ctx context.Context, sess *session.Session, u Upload) (*models.DoctorVerification, error) {
	// 1. Only signed-in doctors
	if sess == nil {
		return nil, svcErr.AuthRequired("Unauthorized")
	}
	if !sess.IsDoctor() {
		return nil, svcErr.Forbidden(MsgDoctorsOnly)
	}

	// 2. Validate the file before any network call
	contentType, err := ValidateUpload(u)
	if err != nil {
		return nil, err
	}

	// 3. Upload the blob
	if s.blobs == nil {
		return nil, svcErr.Backend(msgUploadFailed, errors.New("blob store is not configured"))
	}
	now := s.now().UTC()
	key := storage.VerificationKey(sess.UserID, now, u.Filename)
	url, err := s.blobs.Put(ctx, key, contentType, u.Data)
	if err != nil {
		logger.Error("verification upload failed", "user_id", sess.UserID, "key", key, "error", err)
		return nil, svcErr.Backend(msgUploadFailed, err)
	}

	// 4. Insert or update the latest row, reset the cached flag
	var row models.DoctorVerification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", sess.UserID).Order("created_at desc").First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.DoctorVerification{
				UserID:           sess.UserID,
				DoctorIDImageURL: url,
				Status:           models.StatusPending,
				SubmittedAt:      &now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			err := tx.Model(&row).Updates(map[string]interface{}{
				"doctor_id_image_url": url,
				"status":              models.StatusPending,
				"submitted_at":        now,
				"verified_at":         nil,
				"reviewed_by":         nil,
			}).Error
			if err != nil {
				return err
			}
		}
		return tx.Model(&models.Profile{}).Where("id = ?", sess.UserID).Update("is_verified", false).Error
	})
	if err != nil {
		logger.Error("verification save failed, blob orphaned", "user_id", sess.UserID, "key", key, "error", err)
		return nil, svcErr.Backend(msgSaveFailed, err)
	}

	// 5. Ask an admin to review it
	req := queue.ReviewRequest{
		VerificationID: row.ID,
		UserID:         sess.UserID,
		Bucket:         s.bucket,
		Key:            key,
		NotifyEmail:    s.notifyEmail,
		UploadedAt:     now,
	}
	if err := s.reviews.EnqueueReview(ctx, req); err != nil {
		logger.Warn("review request not queued", "verification_id", row.ID, "error", err)
	}

	s.publish(ctx, realtime.EventUpdate, &row)
	logger.Info("verification submitted", "user_id", sess.UserID, "verification_id", row.ID)
	return s.reload(ctx, row.ID)
}

// Latest returns the newest verification of userID, or nil when none exists.
func (s *Service) Latest(ctx context.Context, userID string) (*models.DoctorVerification, error) {
	var row models.DoctorVerification
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &row, nil
}

// StatusView is the verification state of one profile.
type StatusView struct {
	Status  models.VerificationStatus  `json:"status"`
	Display Display                    `json:"display"`
	Latest  *models.DoctorVerification `json:"latest"`
}

// Status resolves the badge of userID from its profile and latest row.
func (s *Service) Status(ctx context.Context, userID string) (*StatusView, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, svcErr.NotFound("Profile not found")
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("Profile not found")
		}
		return nil, svcErr.Map(err)
	}

	latest, err := s.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := models.StatusUnverified
	if latest != nil {
		status, _ = NormalizeStatus(string(latest.Status))
	}
	return &StatusView{
		Status:  status,
		Display: Render(Derive(profile.Role, profile.IsVerified, latest)),
		Latest:  latest,
	}, nil
}

// Pending lists submissions awaiting review, oldest first. Admin only.
func (s *Service) Pending(ctx context.Context, sess *session.Session) ([]models.DoctorVerification, error) {
	if !sess.IsAdmin() {
		return nil, svcErr.Forbidden("Admin access required")
	}

	var rows []models.DoctorVerification
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("status = ?", models.StatusPending).
		Order("submitted_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return rows, nil
}

// Review applies an admin decision to a pending submission.
func (s *Service) Review(ctx context.Context, sess *session.Session, id string, approve bool) (*models.DoctorVerification, error) {
	if !sess.IsAdmin() {
		return nil, svcErr.Forbidden("Admin access required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, svcErr.NotFound("Verification not found")
	}

	now := s.now().UTC()
	var row models.DoctorVerification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.NotFound("Verification not found")
			}
			return err
		}
		if row.Status != models.StatusPending {
			return svcErr.Conflict("Verification is not pending")
		}

		// Only the newest submission decides the badge
		var newer int64
		err := tx.Model(&models.DoctorVerification{}).
			Where("user_id = ? AND created_at > ?", row.UserID, row.CreatedAt).
			Count(&newer).Error
		if err != nil {
			return err
		}
		if newer > 0 {
			return svcErr.Conflict("A newer submission exists for this doctor")
		}

		updates := map[string]interface{}{
			"status":      models.StatusRejected,
			"verified_at": nil,
			"reviewed_by": sess.UserID,
		}
		if approve {
			updates["status"] = models.StatusVerified
			updates["verified_at"] = now
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).Where("id = ?", row.UserID).Update("is_verified", approve).Error
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	s.notifyOutcome(ctx, row.UserID, approve)
	s.publish(ctx, realtime.EventUpdate, &row)
	logger.Info("verification reviewed", "verification_id", row.ID, "admin_id", sess.UserID, "approved", approve)
	return s.reload(ctx, row.ID)
}

// ReconcileProfiles rewrites profiles whose cached is_verified flag drifted
// from their latest verification status. Returns the number of fixed rows.
func (s *Service) ReconcileProfiles(ctx context.Context) (int, error) {
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Select("id", "role", "is_verified").Find(&profiles).Error; err != nil {
		return 0, svcErr.Map(err)
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	latest, err := LatestForUsers(ctx, s.db, ids)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, p := range profiles {
		want := Derive(p.Role, p.IsVerified, latest[p.ID]) == BadgeVerifiedDoctor
		if p.IsVerified == want {
			continue
		}
		err := s.db.WithContext(ctx).Model(&models.Profile{}).
			Where("id = ?", p.ID).
			Update("is_verified", want).Error
		if err != nil {
			return fixed, svcErr.Map(err)
		}
		fixed++
	}

	if fixed > 0 {
		logger.Info("profile verification flags reconciled", "fixed", fixed)
	}
	return fixed, nil
}

func (s *Service) reload(ctx context.Context, id string) (*models.DoctorVerification, error) {
	var row models.DoctorVerification
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, svcErr.Map(err)
	}
	return &row, nil
}

func (s *Service) notifyOutcome(ctx context.Context, userID string, approved bool) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "fcm_token").First(&user, "id = ?", userID).Error; err != nil {
		logger.Warn("verification push skipped", "user_id", userID, "error", err)
		return
	}

	title, body := "Verification rejected", "Your doctor ID could not be verified. Please upload a clearer image."
	if approved {
		title, body = "You're verified", "Your doctor credentials have been verified."
	}
	data := map[string]string{"type": "verification", "approved": strconv.FormatBool(approved)}
	if err := s.notifier.Send(ctx, user.FCMToken, title, body, data); err != nil {
		logger.Warn("verification push failed", "user_id", userID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, typ realtime.EventType, row *models.DoctorVerification) {
	if s.feed == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, realtime.TableVerifications, row.ID, row)
	if err != nil {
		logger.Warn("verification event not built", "error", err)
		return
	}
	topic := realtime.Topic{Table: realtime.TableVerifications, Filter: row.UserID}
	if err := s.feed.Publish(ctx, topic, ev); err != nil {
		logger.Warn("verification event not published", "error", err)
	}
}
