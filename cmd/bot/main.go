// Command bot runs the onboarding bot: it opens the database, starts
// the scheduler, rehydrates jobs for active roadmaps and long-polls
// Telegram for intern responses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	roadmapbot "github.com/onboardkit/roadmapbot"
	"github.com/onboardkit/roadmapbot/pkg/config"
	"github.com/onboardkit/roadmapbot/pkg/core"
	"github.com/onboardkit/roadmapbot/pkg/dispatch"
	"github.com/onboardkit/roadmapbot/pkg/scheduler"
	"github.com/onboardkit/roadmapbot/pkg/session"
	"github.com/onboardkit/roadmapbot/pkg/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if err := run(*configPath, log); err != nil {
		log.Error("bot exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, log *slog.Logger) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(settings)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	store := roadmapbot.NewGormStore(db)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	client := telegram.New(settings.Token)

	sched := roadmapbot.NewScheduler(scheduler.WithLogger(log))
	dispatcher := roadmapbot.NewDispatcher(store, sched, client, dispatch.WithLogger(log))

	var flow session.Flow
	if settings.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
		})
		defer rdb.Close()
		flow = session.NewRedisFlow(rdb, session.DefaultTTL)
	} else {
		flow = session.NewMemoryFlow(session.DefaultTTL)
	}

	go func() {
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("scheduler stopped", "error", err)
		}
	}()

	if err := dispatcher.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}
	go sched.RunPeriodic(ctx, scheduler.Every(settings.SweepInterval), "rehydrate", dispatcher.Rehydrate)

	log.Info("bot started", "sweep_interval", settings.SweepInterval)

	bot := &botLoop{
		client:     client,
		dispatcher: dispatcher,
		flow:       flow,
		log:        log,
	}
	return bot.poll(ctx)
}

func openDB(settings config.Settings) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if settings.DatabaseDSN != "" {
		return gorm.Open(postgres.Open(settings.DatabaseDSN), cfg)
	}
	// SQLite leaves foreign keys off by default; the cascade
	// constraints on roadmap deletion depend on them.
	return gorm.Open(sqlite.Open(settings.SQLitePath+"?_foreign_keys=on"), cfg)
}

// flowState is the per-chat conversation state stored between updates.
type flowState struct {
	// AwaitingFeedbackFor holds the point id whose feedback request
	// prompt the intern is replying to.
	AwaitingFeedbackFor uint `json:"awaiting_feedback_for"`
}

type botLoop struct {
	client     *telegram.Client
	dispatcher *roadmapbot.Dispatcher
	flow       session.Flow
	log        *slog.Logger
}

func (b *botLoop) poll(ctx context.Context) error {
	var offset int64
	for {
		updates, err := b.client.GetUpdates(ctx, offset, 60*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.log.Error("get updates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			b.handle(ctx, u)
		}
	}
}

func (b *botLoop) handle(ctx context.Context, u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *botLoop) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	op, args, _ := strings.Cut(cb.Data, ":")

	var err error
	switch op {
	case "start_test":
		var pointID uint
		if pointID, err = parseID(args); err == nil {
			err = b.dispatcher.StartTest(ctx, pointID)
		}
	case "answer":
		rawQuestion, rawIndex, ok := strings.Cut(args, ":")
		if !ok {
			err = fmt.Errorf("malformed answer callback %q", cb.Data)
			break
		}
		var questionID uint
		var index int
		if questionID, err = parseID(rawQuestion); err != nil {
			break
		}
		if index, err = strconv.Atoi(rawIndex); err != nil {
			break
		}
		err = b.dispatcher.RecordAnswer(ctx, questionID, index)
	case "feedback":
		var pointID uint
		if pointID, err = parseID(args); err == nil {
			err = b.flow.Put(ctx, cb.From.ID, flowState{AwaitingFeedbackFor: pointID})
		}
	default:
		b.log.Debug("unhandled callback", "data", cb.Data)
	}

	if err != nil {
		b.log.Error("callback failed", "data", cb.Data, "error", err)
	}
	if ackErr := b.client.AnswerCallback(ctx, cb.ID, ""); ackErr != nil {
		b.log.Warn("answer callback failed", "error", ackErr)
	}
}

func (b *botLoop) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}

	var state flowState
	err := b.flow.Get(ctx, msg.From.ID, &state)
	if errors.Is(err, session.ErrNoState) {
		return
	}
	if err != nil {
		b.log.Error("load flow state failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}

	if state.AwaitingFeedbackFor != 0 {
		err := b.dispatcher.RecordFeedback(ctx, state.AwaitingFeedbackFor, msg.Text)
		switch {
		case core.IsValidation(err):
			if _, sendErr := b.client.Send(ctx, msg.Chat.ID, err.Error(), nil); sendErr != nil {
				b.log.Warn("send validation reply failed", "error", sendErr)
			}
			return
		case err != nil:
			b.log.Error("record feedback failed", "point_id", state.AwaitingFeedbackFor, "error", err)
			return
		}
		if err := b.flow.Clear(ctx, msg.From.ID); err != nil {
			b.log.Warn("clear flow state failed", "chat_id", msg.Chat.ID, "error", err)
		}
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed id %q: %w", s, err)
	}
	return uint(id), nil
}
