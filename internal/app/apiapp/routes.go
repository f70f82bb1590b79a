package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/config"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	authsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/auth"
	commentssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/comments"
	locationsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/location"
	mediasvc "github.com/Iornfire12211221/KNG-sub001/internal/services/media"
	modsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/moderation"
	notifysvc "github.com/Iornfire12211221/KNG-sub001/internal/services/notify"
	postssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/posts"
	ratesvc "github.com/Iornfire12211221/KNG-sub001/internal/services/rate"
	userssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/users"
	"github.com/Iornfire12211221/KNG-sub001/internal/transport/http/handlers"
)

type Dependencies struct {
	PostService      *postssvc.Service
	CommentService   *commentssvc.Service
	AuthService      *authsvc.Service
	UserService      *userssvc.Service
	LocationResolver *locationsvc.Resolver
	Dispatcher       *notifysvc.Dispatcher
	ModerationEngine *modsvc.Engine
	MediaService     *mediasvc.Service
	RateLimiter      *ratesvc.Limiter
	Logger           *zap.Logger
	Config           config.Config
	Version          string
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Version)
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	postsHandler := handlers.NewPostsHandler(deps.PostService, deps.UserService, deps.Logger)
	postsHandler.AttachRateLimiter(deps.RateLimiter)
	commentsHandler := handlers.NewCommentsHandler(deps.CommentService, deps.UserService, deps.Logger)
	usersHandler := handlers.NewUsersHandler(deps.UserService, deps.LocationResolver, deps.Logger)
	notificationsHandler := handlers.NewNotificationsHandler(deps.Dispatcher, deps.Logger)
	moderationHandler := handlers.NewModerationHandler(deps.PostService, deps.ModerationEngine, deps.Logger)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService, deps.Logger)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	moderatorMW := RequireRole(enums.RoleModerator)
	adminMW := RequireRole(enums.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/telegram", authHandler.Telegram)
			r.Post("/refresh", authHandler.Refresh)
			r.With(authMW).Post("/logout", authHandler.Logout)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postsHandler.List)
			r.With(authMW).Post("/", postsHandler.Submit)
			r.With(authMW).Post("/{id}/like", postsHandler.Like)
			r.With(authMW).Patch("/{id}", postsHandler.Update)
			r.With(authMW).Delete("/{id}", postsHandler.Remove)

			r.Get("/{id}/comments", commentsHandler.List)
			r.With(authMW).Post("/{id}/comments", commentsHandler.Create)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(authMW).Get("/me", usersHandler.Me)
			r.With(authMW).Put("/me/preferences", usersHandler.UpdatePreferences)
			r.With(authMW).Post("/me/location", usersHandler.ReportLocation)
			r.With(authMW, adminMW).Post("/{id}/role", usersHandler.SetRole)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/", notificationsHandler.List)
			r.Post("/{id}/ack", notificationsHandler.Ack)
		})

		r.Route("/moderation", func(r chi.Router) {
			r.Use(authMW, moderatorMW)
			r.Get("/queue", moderationHandler.Queue)
			r.Post("/{id}/approve", moderationHandler.Approve)
			r.Post("/{id}/reject", moderationHandler.Reject)
			r.Post("/{id}/feedback", moderationHandler.Feedback)
			r.Get("/stats", moderationHandler.Stats)
		})

		r.With(authMW).Post("/media/photo", mediaHandler.UploadPhoto)
	})
}
