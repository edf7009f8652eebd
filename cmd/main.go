// Command birdbot runs the sightings bot: it long-polls the Bot API, routes
// updates through the dialog orchestrator, and serves health and metrics
// endpoints over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"birdbot/handler"
	"birdbot/internal/config"
	"birdbot/internal/daterange"
	"birdbot/internal/integrations/ebird"
	"birdbot/internal/integrations/paramstore"
	"birdbot/internal/integrations/sheetlog"
	"birdbot/internal/integrations/telegram"
	"birdbot/internal/metrics"
	"birdbot/internal/session"
	"birdbot/internal/usecase"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("bot exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	// ---- Secrets ----
	var ps paramstore.Getter
	if cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return err
		}
		ps = client
	}

	telegramToken := cfg.TelegramToken
	if telegramToken == "" {
		telegramToken, err = ps.GetParameter(ctx, paramstore.TokenPath(cfg.ParamPrefix, paramstore.TelegramTokenName))
		if err != nil {
			return err
		}
	}

	// ---- Clients ----
	tg, err := telegram.NewClient(telegramToken)
	if err != nil {
		return err
	}

	var ebirdOpts []ebird.Option
	if cfg.EBirdAPIKey != "" {
		ebirdOpts = append(ebirdOpts, ebird.WithAPIKey(cfg.EBirdAPIKey))
	}
	fetcher, err := ebird.NewClient(ps, cfg.ParamPrefix, ebirdOpts...)
	if err != nil {
		return err
	}

	// ---- Dialog state ----
	sess := usecase.NewSessionContext()
	snap, err := session.NewSnapshotter(sess.Store, cfg.SnapshotPath, log,
		session.WithInterval(cfg.SnapshotInterval),
	)
	if err != nil {
		return err
	}
	if err := snap.Restore(); err != nil {
		return err
	}
	go snap.Run(ctx)

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// ---- Search log ----
	orchOpts := []usecase.OrchestratorOption{
		usecase.WithMetrics(m),
		usecase.WithLogger(log),
		usecase.WithPageSize(cfg.PageSize),
	}
	var outbox *sheetlog.Outbox
	if cfg.SheetWebhookURL != "" {
		sink, err := sheetlog.NewWebhookSink(cfg.SheetWebhookURL, nil)
		if err != nil {
			return err
		}
		outbox, err = sheetlog.NewOutbox(sink, log)
		if err != nil {
			return err
		}
		go outbox.Run(ctx)
		orchOpts = append(orchOpts, usecase.WithSearchLogger(&outboxSearchLog{outbox: outbox}))
	}

	// ---- Orchestrator and dispatcher ----
	transport, err := handler.NewTransport(tg)
	if err != nil {
		return err
	}
	orch, err := usecase.NewOrchestrator(sess, fetcher, transport, daterange.NewResolver(), orchOpts...)
	if err != nil {
		return err
	}
	disp, err := handler.NewDispatcher(orch, sess.Limiter, tg,
		handler.WithMetrics(m),
		handler.WithLogger(log),
	)
	if err != nil {
		return err
	}

	// ---- Health and metrics endpoints ----
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
		}
	}()

	// ---- Poll loop ----
	log.Info("bot started", "listen_addr", cfg.ListenAddr, "poll_timeout", cfg.PollTimeout)
	var offset int64
	for ctx.Err() == nil {
		updates, err := tg.GetUpdates(ctx, offset, cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("get updates failed, retrying", "err", err)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
			}
			continue
		}
		for _, upd := range updates {
			offset = upd.UpdateID + 1
			disp.Dispatch(ctx, upd)
		}
	}

	// ---- Graceful shutdown ----
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", "err", err)
	}
	// Run writes the final snapshot on cancellation; wait for it rather than
	// racing it with a second write.
	select {
	case <-snap.Done():
	case <-shutdownCtx.Done():
		log.Warn("snapshot flush did not complete in time")
	}
	if outbox != nil {
		select {
		case <-outbox.Done():
		case <-shutdownCtx.Done():
			log.Warn("search log outbox did not drain in time")
		}
	}
	return nil
}

// outboxSearchLog adapts the sheetlog outbox to the orchestrator's
// search-logging interface.
type outboxSearchLog struct {
	outbox *sheetlog.Outbox
}

func (l *outboxSearchLog) LogSearch(r usecase.SearchRecord) {
	l.outbox.Publish(sheetlog.Entry{
		ChatID:      r.ChatID,
		QueryType:   r.QueryType,
		RegionCode:  r.RegionCode,
		DisplayName: r.DisplayName,
		DateLabel:   r.DateLabel,
		ResultCount: r.ResultCount,
		SearchedAt:  r.SearchedAt,
	})
}
