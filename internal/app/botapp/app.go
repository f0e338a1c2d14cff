package botapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joinua/JR-Foxy/internal/config"
	tginfra "github.com/joinua/JR-Foxy/internal/infra/telegram"
	"github.com/joinua/JR-Foxy/internal/jobs/cleanup"
	"github.com/joinua/JR-Foxy/internal/jobs/scheduler"
	pgrepo "github.com/joinua/JR-Foxy/internal/repo/postgres"
	redrepo "github.com/joinua/JR-Foxy/internal/repo/redis"
	accesssvc "github.com/joinua/JR-Foxy/internal/services/access"
	admissionsvc "github.com/joinua/JR-Foxy/internal/services/admission"
	"github.com/joinua/JR-Foxy/internal/services/escalation"
	warningssvc "github.com/joinua/JR-Foxy/internal/services/warnings"
	"github.com/joinua/JR-Foxy/internal/ui"
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	bot      *tginfra.Bot

	warnings   *warningssvc.Service
	access     *accesssvc.Service
	admission  *admissionsvc.Service
	policy     escalation.Policy
	schedJob   *scheduler.Job
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

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	bot, err := tginfra.NewBot(cfg.Bot.Token)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	warningsRepo := pgrepo.NewWarningsRepo(pool)
	candidatesRepo := pgrepo.NewCandidatesRepo(pool)
	tasksRepo := pgrepo.NewTasksRepo(pool)
	adminsRepo := pgrepo.NewAdminsRepo(pool)
	levelsCache := redrepo.NewLevelsCache(redisClient, 0)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		redis:    redisClient,
		bot:      bot,
		warnings: warningssvc.NewService(warningsRepo, cfg.Warnings.Validity),
		access:   accesssvc.NewService(adminsRepo, levelsCache, logger),
		policy:   escalation.NewPolicy(cfg.Warnings.BanThreshold),
	}

	app.admission = admissionsvc.NewService(
		candidatesRepo,
		tasksRepo,
		bot,
		&promptNotifier{app: app},
		admissionsvc.Config{
			MainChatID:      cfg.Bot.MainChatID,
			ReceptionChatID: cfg.Bot.ReceptionChatID,
			ReviewDelay:     cfg.Admission.ReviewDelay,
			WaitExtension:   cfg.Admission.WaitExtension,
			InviteTTL:       cfg.Admission.InviteTTL,
		},
		logger,
	)

	app.schedJob = scheduler.New(tasksRepo, cfg.Scheduler.PollInterval, cfg.Scheduler.BatchSize, logger)
	app.schedJob.RegisterHandler(admissionsvc.TaskTypeReviewDue, app.admission.HandleReviewDue)

	app.cleanupJob = cleanup.New(tasksRepo, 0, logger)

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	if err := a.access.BootstrapOwner(ctx, a.cfg.Bot.OwnerID); err != nil {
		return err
	}

	a.logger.Info("bot app started")

	errCh := make(chan error, 3)
	go func() {
		errCh <- a.schedJob.Run(ctx)
	}()
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()
	go func() {
		errCh <- a.bot.Listen(ctx, tginfra.Handlers{
			OnCommand:    resilient(a.logger, "command", a.handleCommand),
			OnText:       resilient(a.logger, "text", a.handleText),
			OnCallback:   resilient(a.logger, "callback", a.handleCallback),
			OnNewMember:  resilient(a.logger, "new_member", a.handleNewMember),
			OnLeftMember: resilient(a.logger, "left_member", a.handleLeftMember),
		})
	}()

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
	if err := a.cleanupJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *App) nowUTC() time.Time {
	return time.Now().UTC()
}

// resilient keeps one failed update from taking down the long-poll loop: a
// handler error (a blocked user, a rate limit, a transient store hiccup) is
// logged and the loop moves on. Only cancellation escapes, so shutdown still
// propagates; everything else the actor already saw or will see as a
// follow-up message.
func resilient[T any](logger *zap.Logger, kind string, fn func(context.Context, T) error) func(context.Context, T) error {
	return func(ctx context.Context, update T) error {
		err := fn(ctx, update)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.Error("update handler failed", zap.String("update_kind", kind), zap.Error(err))
		return nil
	}
}

// adminLog sends housekeeping notices to the admin-log chat when configured.
func (a *App) adminLog(ctx context.Context, text string) {
	if a.cfg.Bot.AdminLogChatID == 0 {
		return
	}
	if _, err := a.bot.SendHTML(ctx, a.cfg.Bot.AdminLogChatID, text); err != nil {
		a.logger.Warn("failed to post to admin log chat", zap.Error(err))
	}
}

// promptNotifier renders admission prompts on behalf of the admission service.
type promptNotifier struct {
	app *App
}

func (n *promptNotifier) SendDecisionPrompt(ctx context.Context, chatID, candidateID int64) (int, error) {
	text := ui.Mention(candidateID, "") + "\n\n" + ui.ReviewButtonsText
	return n.app.bot.SendDecisionButtons(ctx, chatID, text, candidateID)
}

func (n *promptNotifier) SendDepartureNotice(ctx context.Context, chatID int64) error {
	return n.app.bot.SendText(ctx, chatID, ui.LeftReceptionText)
}
