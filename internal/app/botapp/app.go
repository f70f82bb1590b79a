package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/config"
	tginfra "github.com/Iornfire12211221/KNG-sub001/internal/infra/telegram"
	"github.com/Iornfire12211221/KNG-sub001/internal/jobs/cleanup"
	pgrepo "github.com/Iornfire12211221/KNG-sub001/internal/repo/postgres"
	authsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/auth"
	userssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/users"
)

const (
	startReply = "Уведомления о постах ДПС рядом включены. Открой Mini App, чтобы смотреть карту и разрешить геолокацию."
	stopReply  = "Уведомления выключены. Отправь /start, чтобы включить их снова."
	helpReply  = "Команды: /start — включить уведомления, /stop — выключить. Карта и посты живут в Mini App."
)

// App is the bot process: it serves subscriber commands over long polling
// and runs the periodic cleanup of expired posts.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	postgres   *pgxpool.Pool
	bot        *tginfra.Bot
	users      *userssvc.Service
	cleanupJob *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}
	if err := pgrepo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema for bot app: %w", err)
	}

	users, err := userssvc.NewService(pgrepo.NewUserRepo(pool), cfg.Bot.FounderTelegramID, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init users service for bot app: %w", err)
	}

	cleanupJob := cleanup.New(pgrepo.NewPostRepo(pool), cfg.Posts.ExpiredRetention, logger)
	cleanupJob.AttachDecisionPruning(pgrepo.NewDecisionRepo(pool), 0)

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, command listener disabled")
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		bot:        bot,
		users:      users,
		cleanupJob: cleanupJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.runListener(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runCleanupLoop(ctx context.Context) error {
	interval := a.cfg.Bot.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		a.logger.Warn("initial cleanup run failed", zap.Error(err))
	}
	a.cleanupJob.RunEvery(ctx, interval)
	return nil
}

// runListener restarts the long-poll loop after transient API failures.
func (a *App) runListener(ctx context.Context) error {
	handlers := tginfra.Handlers{
		OnCommand: a.handleCommand,
		OnText:    a.handleText,
	}

	for {
		err := a.bot.Listen(ctx, handlers)
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		a.logger.Warn("bot listener failed, restarting", zap.Error(err))
		if werr := tginfra.WaitUntil(ctx, 5*time.Second); werr != nil {
			return nil
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	switch update.Command {
	case "start":
		if err := a.setNotifications(ctx, update, true); err != nil {
			a.logger.Warn("enable notifications failed", zap.Error(err), zap.Int64("telegram_id", update.UserID))
			return nil
		}
		return a.reply(update.ChatID, startReply)
	case "stop":
		if err := a.setNotifications(ctx, update, false); err != nil {
			a.logger.Warn("disable notifications failed", zap.Error(err), zap.Int64("telegram_id", update.UserID))
			return nil
		}
		return a.reply(update.ChatID, stopReply)
	default:
		return a.reply(update.ChatID, helpReply)
	}
}

func (a *App) handleText(_ context.Context, update tginfra.TextUpdate) error {
	return a.reply(update.ChatID, helpReply)
}

func (a *App) setNotifications(ctx context.Context, update tginfra.CommandUpdate, enabled bool) error {
	user, err := a.users.UpsertFromTelegram(ctx, authsvc.TelegramProfile{
		ID:       update.UserID,
		Username: update.Username,
	})
	if err != nil {
		return err
	}

	prefs := user.Preferences
	prefs.Enabled = enabled
	return a.users.UpdatePreferences(ctx, user.ID, prefs)
}

func (a *App) reply(chatID int64, text string) error {
	if err := a.bot.SendText(chatID, text); err != nil {
		a.logger.Warn("bot reply failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	return nil
}

func (a *App) Shutdown() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
