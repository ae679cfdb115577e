// Package app wires infrastructure into the services the HTTP layer uses.
package app

import (
	"aigyoo-backend/internal/config"
	"aigyoo-backend/internal/queue"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/services/account"
	"aigyoo-backend/internal/services/assistant"
	"aigyoo-backend/internal/services/feed"
	"aigyoo-backend/internal/services/messaging"
	"aigyoo-backend/internal/services/profile"
	"aigyoo-backend/internal/services/social"
	"aigyoo-backend/internal/services/verification"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/internal/storage"
	"aigyoo-backend/pkg/utils"

	"gorm.io/gorm"
)

// Infra is what main builds from configuration. Blobs, Reviews and
// Notifier may be nil when the backing service is not configured.
type Infra struct {
	Config    *config.Config
	DB        *gorm.DB
	Realtime  realtime.Feed
	Blobs     storage.BlobStore
	Reviews   queue.ReviewQueue
	Notifier  utils.Notifier
	Revoker   session.Revoker
	Assistant assistant.Streamer
}

type Context struct {
	Config       *config.Config
	DB           *gorm.DB
	Realtime     realtime.Feed
	Sessions     *session.Manager
	Profiles     *profile.Service
	Verification *verification.Service
	Social       *social.Service
	Posts        *feed.Service
	Messages     *messaging.Service
	Assistant    assistant.Streamer
	Histories    *assistant.History
	Accounts     *account.Service
}

func New(in Infra) *Context {
	cfg := in.Config
	if in.Notifier == nil {
		in.Notifier = utils.NopNotifier{}
	}

	sessions := session.NewManager(in.DB, in.Revoker, cfg.JWT.Secret, cfg.JWT.TTL)
	socialSvc := social.NewService(in.DB, in.Realtime, in.Notifier)

	return &Context{
		Config:   cfg,
		DB:       in.DB,
		Realtime: in.Realtime,
		Sessions: sessions,
		Profiles: profile.NewService(in.DB, socialSvc, in.Realtime),
		Verification: verification.NewService(verification.Options{
			DB:          in.DB,
			Blobs:       in.Blobs,
			Reviews:     in.Reviews,
			Notifier:    in.Notifier,
			Feed:        in.Realtime,
			NotifyEmail: cfg.AdminNotifyEmail,
			Bucket:      cfg.S3.Bucket,
		}),
		Social:    socialSvc,
		Posts:     feed.NewService(in.DB, in.Realtime),
		Messages:  messaging.NewService(in.DB, in.Realtime, in.Notifier),
		Assistant: in.Assistant,
		Histories: assistant.NewHistory(in.DB),
		Accounts:  account.NewService(in.DB, in.Blobs, sessions),
	}
}
