package routes

import (
	"context"

	"aigyoo-backend/internal/app"
	"aigyoo-backend/internal/handlers"
	"aigyoo-backend/internal/middleware"
	"aigyoo-backend/internal/services/verification"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SetupRoutes registers every endpoint. Event streams end when streams is
// cancelled.
func SetupRoutes(r *gin.Engine, a *app.Context, streams context.Context) {
	h := handlers.New(a)
	stream := middleware.StreamContext(streams)

	r.MaxMultipartMemory = verification.MaxUploadSize + 1<<20
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(a.Config.AllowedOrigins()))
	r.Use(middleware.RateLimitMiddleware(rate.Limit(a.Config.RateLimit.RPS), a.Config.RateLimit.Burst))

	r.GET("/ping", h.Ping)

	// Upload and account endpoints answer with bare {error} bodies
	bare := r.Group("/api")
	bare.Use(middleware.AuthErrorMiddleware(a.Sessions))
	{
		bare.POST("/doctor/upload-verification", h.UploadVerification)
		bare.POST("/upload-doctor-id", h.UploadDoctorID)
		bare.POST("/delete-account", h.DeleteAccount)
	}

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}
		api.GET("/specializations", h.Specializations)

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(a.Sessions))
		{
			protected.POST("/auth/logout", h.Logout)
			protected.GET("/auth/me", h.Me)

			protected.GET("/profiles/:id", h.GetProfile)
			protected.PUT("/profile", h.UpdateProfile)
			protected.GET("/users/suggestions", h.Suggestions)
			protected.GET("/users/search", h.SearchUsers)

			protected.GET("/verification", h.VerificationStatus)

			friends := protected.Group("/friends")
			{
				friends.GET("", h.ListFriends)
				friends.GET("/requests", h.ListFriendRequests)
				friends.POST("/requests", h.SendFriendRequest)
				friends.POST("/requests/:userId/accept", h.AcceptFriendRequest)
				friends.DELETE("/requests/:userId", h.CancelFriendRequest)
				friends.GET("/status/:userId", h.FriendStatus)
			}

			posts := protected.Group("/posts")
			{
				posts.GET("", h.ListPosts)
				posts.POST("", h.CreatePost)
				posts.DELETE("/:id", h.DeletePost)
				posts.POST("/:id/like", h.ToggleLike)
				posts.GET("/:id/comments", h.ListComments)
				posts.POST("/:id/comments", h.AddComment)
			}

			messages := protected.Group("/messages")
			{
				messages.GET("/:userId", h.GetConversation)
				messages.POST("/:userId", h.SendMessage)
				messages.POST("/:userId/read", h.MarkMessagesRead)
				messages.GET("/:userId/stream", stream, h.StreamConversation)
			}

			ai := protected.Group("/assistant")
			{
				ai.POST("/chat", stream, h.AssistantChat)
				ai.GET("/histories", h.ListChatHistories)
				ai.POST("/histories", h.SaveChatHistory)
				ai.DELETE("/histories/:id", h.DeleteChatHistory)
			}

			protected.GET("/realtime/:table", stream, h.Subscribe)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.GET("/verifications", h.ListPendingVerifications)
				admin.POST("/verifications/:id/review", h.ReviewVerification)
				admin.POST("/verifications/reconcile", h.ReconcileVerifications)
			}
		}
	}
}
