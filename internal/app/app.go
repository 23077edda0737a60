package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"secret-santa-wishlist/config"
	"secret-santa-wishlist/internal/domain"
	"secret-santa-wishlist/internal/repository"
	"secret-santa-wishlist/internal/service"
	"secret-santa-wishlist/internal/session"
	"secret-santa-wishlist/internal/sheet"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sheet.New(ctx,
		cfg.Sheets.ServiceAccountEmail,
		cfg.Sheets.PrivateKey,
		cfg.Sheets.SpreadsheetID,
		cfg.Sheets.SheetName,
	)
	if err != nil {
		return fmt.Errorf("failed to open sheet: %w", err)
	}

	var sessions domain.SessionStore
	if cfg.Redis.Host != "" {
		redisStore, err := session.NewRedisStore(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		logger.Info("no Redis configured, using in-memory sessions")
		sessions = session.NewMemoryStore()
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	bot := service.NewSantaBot(
		api,
		repository.NewWishlistRepository(store),
		repository.NewAssignmentRepository(store),
		sessions,
		logger,
	)

	return runBot(ctx, api, bot, logger)
}

func runBot(ctx context.Context, api *tgbotapi.BotAPI, bot *service.SantaBot, logger *zap.Logger) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	logger.Info("bot started and ready", zap.String("username", api.Self.UserName))

	for update := range updates {
		if err := bot.HandleUpdate(ctx, update); err != nil {
			logger.Error("failed to handle update",
				zap.Int("update_id", update.UpdateID), zap.Error(err))
			bot.ReplyFailure(update)
		}
	}

	logger.Info("bot stopped")
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Log.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		level = parsed
	}

	if cfg.Log.File != "" {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
		encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		return zap.New(zapcore.NewCore(encoder, sink, level)), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
