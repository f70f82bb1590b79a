package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/config"
	"github.com/Iornfire12211221/KNG-sub001/internal/infra/httpclient"
	s3infra "github.com/Iornfire12211221/KNG-sub001/internal/infra/s3"
	"github.com/Iornfire12211221/KNG-sub001/internal/infra/telegram"
	pgrepo "github.com/Iornfire12211221/KNG-sub001/internal/repo/postgres"
	redrepo "github.com/Iornfire12211221/KNG-sub001/internal/repo/redis"
	authsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/auth"
	commentssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/comments"
	locationsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/location"
	mediasvc "github.com/Iornfire12211221/KNG-sub001/internal/services/media"
	modsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/moderation"
	notifysvc "github.com/Iornfire12211221/KNG-sub001/internal/services/notify"
	postssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/posts"
	ratesvc "github.com/Iornfire12211221/KNG-sub001/internal/services/rate"
	userssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/users"
)

const Version = "1.0.0"

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing with in-memory stores", zap.Error(err))
	} else if err := pgrepo.EnsureSchema(ctx, p); err != nil {
		p.Close()
		log.Warn("postgres schema init failed, continuing with in-memory stores", zap.Error(err))
	} else {
		pool = p
	}

	redisClient, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("redis ping failed, continuing in degraded mode", zap.Error(err))
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	locationRepo := redrepo.NewLocationRepo(redisClient)
	addressRepo := redrepo.NewAddressRepo(redisClient)
	notificationRepo := redrepo.NewNotificationRepo(redisClient)

	userService, err := buildUserService(pool, cfg, log)
	if err != nil {
		return nil, err
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userService, cfg.Bot.Token, cfg.Auth.SessionTTL)

	settings, err := modsvc.SettingsFromConfig(cfg.Moderation)
	if err != nil {
		return nil, fmt.Errorf("moderation settings: %w", err)
	}

	var (
		postStore   postssvc.Store
		recentPosts modsvc.RecentPostsProvider
		decisionLog modsvc.DecisionLog
		postExists  commentssvc.PostChecker
		commentRepo commentssvc.Store
	)
	if pool != nil {
		postRepo := pgrepo.NewPostRepo(pool)
		postStore = postRepo
		recentPosts = postRepo
		postExists = postRepo
		decisionLog = pgrepo.NewDecisionRepo(pool)
		commentRepo = pgrepo.NewCommentRepo(pool)
	} else {
		postMem := postssvc.NewMemoryStore()
		postStore = postMem
		recentPosts = postMem
		postExists = postMem
		commentRepo = commentssvc.NewMemoryStore()
	}

	engine := modsvc.NewEngine(settings, modsvc.NewRuleScorer(), decisionLog, recentPosts, modsvc.Config{
		ContextRadiusKM: cfg.Moderation.ContextRadiusKM,
		ContextWindow:   cfg.Moderation.ContextWindow,
	}, log)

	postService := postssvc.NewService(postStore, engine, postssvc.Config{
		TTL:          cfg.Posts.TTL,
		DefaultLimit: cfg.Posts.DefaultLimit,
		FallbackLat:  cfg.Posts.FallbackLat,
		FallbackLon:  cfg.Posts.FallbackLon,
	}, log)

	commentService, err := commentssvc.NewService(commentRepo, postExists, log)
	if err != nil {
		return nil, fmt.Errorf("comments service: %w", err)
	}

	var sink notifysvc.Sink
	if bot, err := telegram.NewBot(cfg.Bot.Token); err != nil {
		log.Warn("telegram bot init failed, notifications stay in-app only", zap.Error(err))
	} else {
		sink = bot
	}

	dispatcher := notifysvc.NewDispatcher(userService, locationRepo, notificationRepo, notificationRepo, sink, notifysvc.Config{
		Cooldown:          cfg.Notify.Cooldown,
		LocationFreshness: cfg.Notify.LocationFreshness,
		HistoryLimit:      cfg.Notify.HistoryLimit,
	}, log)
	postService.AttachApprovedListener(dispatcher)

	httpc := httpclient.New(10 * time.Second)
	resolver := locationsvc.NewResolver(
		locationRepo,
		addressRepo,
		nil,
		nil,
		locationsvc.NewIPAPIClient(cfg.Location.IPAPIEndpoint, httpc),
		locationsvc.NewNominatimClient(cfg.Location.GeocoderEndpoint, "dpsmap/"+Version, httpc),
		locationsvc.Config{
			CacheFreshness:   cfg.Location.CacheFreshness,
			AddressFreshness: cfg.Location.AddressFreshness,
			MaxRetries:       cfg.Location.MaxRetries,
			AcquireTimeout:   cfg.Location.AcquireTimeout,
		}, log)

	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Rate.PostsPerMinute, cfg.Rate.PostsPer10Sec)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	mediaService := mediasvc.NewService(mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket))

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		PostService:      postService,
		CommentService:   commentService,
		AuthService:      authService,
		UserService:      userService,
		LocationResolver: resolver,
		Dispatcher:       dispatcher,
		ModerationEngine: engine,
		MediaService:     mediaService,
		RateLimiter:      rateLimiter,
		Logger:           log,
		Config:           cfg,
		Version:          Version,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func buildUserService(pool *pgxpool.Pool, cfg config.Config, log *zap.Logger) (*userssvc.Service, error) {
	var store userssvc.Store
	if pool != nil {
		store = pgrepo.NewUserRepo(pool)
	} else {
		store = userssvc.NewMemoryStore()
	}
	return userssvc.NewService(store, cfg.Bot.FounderTelegramID, log)
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
