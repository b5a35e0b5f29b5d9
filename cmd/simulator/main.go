// Command simulator drives a full tracking session against a running
// collector, emulating one learner working through embedded content.
// Useful for smoke-testing the collector and the live dashboard feed.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/architect/interactive-content/internal/tracking/models"
	"github.com/architect/interactive-content/internal/tracking/session"
	"github.com/architect/interactive-content/internal/tracking/syncer"
	"github.com/architect/interactive-content/internal/tracking/timelimit"
	"github.com/architect/interactive-content/pkg/config"
	"github.com/architect/interactive-content/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	var (
		contentID = flag.Uint("content", 42, "content ID to report against")
		courseID  = flag.Uint("course", 7, "course ID")
		moduleID  = flag.Uint("module", 3, "module ID")
		steps     = flag.Int("steps", 10, "total steps in the content")
		stepEvery = flag.Duration("step-every", 2*time.Second, "delay between step advances")
		limit     = flag.Int("time-limit", 0, "time limit in minutes, 0 for none")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	opts := []session.Option{
		session.WithSyncInterval(cfg.Tracking.SyncInterval),
		session.WithForceDebounce(cfg.Tracking.ForceSyncDebounce),
		session.WithScrollDebounce(cfg.Tracking.ScrollDebounce),
		session.WithHistoryCapacity(cfg.Tracking.HistoryCapacity),
		session.WithTotalSteps(*steps),
	}

	// Timed sessions resume their countdown across restarts when Redis
	// is available.
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, session.WithStartTimeStore(timelimit.NewRedisStore(client, 0)))
		logger.Info("Using Redis start-time store", zap.String("addr", cfg.Redis.Addr))
	}

	if *limit > 0 {
		opts = append(opts,
			session.WithCountdown(func(remaining time.Duration) {
				fmt.Printf("\rtime remaining: %s ", remaining.Round(time.Second))
			}),
			session.WithExpireCallback(func() {
				fmt.Println("\ntime limit reached")
			}),
		)
	}

	sess, err := session.New(models.SessionConfig{
		ContentID:        uint(*contentID),
		CourseID:         uint(*courseID),
		ModuleID:         uint(*moduleID),
		HasTimeLimit:     *limit > 0,
		TimeLimitMinutes: *limit,
		TutorPersonality: "friendly",
	}, syncer.NewClient(cfg.Tracking.EndpointBaseURL), opts...)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	defer sess.Close()

	sess.ContentLoaded()
	logger.Info("Session started",
		zap.Uint("content_id", uint(*contentID)),
		zap.String("endpoint", cfg.Tracking.EndpointBaseURL),
	)

	for step := 1; step <= *steps; step++ {
		if sess.Expired() {
			logger.Warn("Session expired before completion", zap.Int("step", step))
			return
		}

		sess.RecordInteraction(models.InteractionEvent{
			Type:   models.EventClick,
			Target: &models.TargetDescriptor{Kind: "button", ID: fmt.Sprintf("step-%d", step)},
		})
		sess.UpdateStep(step, *steps)

		progress := sess.CurrentProgress()
		logger.Info("Advanced step",
			zap.Int("step", progress.CurrentStep),
			zap.Int("completion", progress.CompletionPercentage),
			zap.String("status", string(progress.Status)),
		)

		time.Sleep(*stepEvery)
	}

	sess.MarkCompleted()
	logger.Info("Session completed", zap.Uint("content_id", uint(*contentID)))
}
