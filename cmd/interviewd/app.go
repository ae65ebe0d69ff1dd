package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/config"
	"github.com/fyrsmithlabs/interviewd/internal/directory"
	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/retrieval"
	"github.com/fyrsmithlabs/interviewd/internal/store"
	"github.com/fyrsmithlabs/interviewd/internal/telemetry"
)

// runtime holds the infrastructure every command needs.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	store  *store.Store
}

// newRuntime loads configuration and opens telemetry, logging and the store.
func newRuntime(ctx context.Context, path string) (*runtime, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:         cfg.Observability.Enabled,
		Endpoint:        cfg.Observability.Endpoint,
		Protocol:        cfg.Observability.Protocol,
		Insecure:        cfg.Observability.Insecure,
		ServiceName:     cfg.Observability.ServiceName,
		ServiceVersion:  version,
		SamplingRate:    cfg.Observability.SamplingRate,
		ExportInterval:  telemetry.NewDefaultConfig().ExportInterval,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OTEL)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("error", h.Error))
	}

	st, err := store.Open(ctx, store.Options{
		Path:        cfg.Store.Path,
		BusyTimeout: cfg.Store.BusyTimeout.Duration(),
	}, logger)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, tel: tel, store: st}, nil
}

// Close releases the store and flushes telemetry and logs.
func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := r.tel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	_ = r.logger.Sync()
	return errors.Join(errs...)
}

// service wires the interview service and returns the closers it opened.
func (r *runtime) service(ctx context.Context) (*interview.Service, func(), error) {
	llm, err := oracle.NewCompleter(r.cfg.LLM, r.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create completer: %w", err)
	}
	if r.cfg.Redaction.Enabled {
		redactor, err := redact.New(&redact.Config{
			Rules:     redact.DefaultRules(),
			AllowList: r.cfg.Redaction.AllowList,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redaction config: %w", err)
		}
		llm = oracle.NewRedacting(llm, redactor, r.logger)
	}
	interviewer, err := oracle.NewInterviewer(llm)
	if err != nil {
		return nil, nil, err
	}

	backend, err := retrieval.New(ctx, r.cfg.Retrieval, r.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create retrieval backend: %w", err)
	}

	var notifier interface {
		interview.Notifier
		Close() error
	} = events.Nop{}
	if r.cfg.Events.NATSURL != "" {
		pub, err := events.Connect(r.cfg.Events.NATSURL, r.cfg.Events.SubjectPrefix, r.logger)
		if err != nil {
			_ = backend.Close()
			return nil, nil, err
		}
		notifier = pub
	}

	svc, err := interview.NewService(&interview.Config{
		Policy: interview.Policy{
			MaxFollowUps:  r.cfg.Interview.MaxFollowUps,
			MaxRejections: r.cfg.Interview.MaxRejections,
		},
		ContextTopK: r.cfg.Interview.ContextTopK,
	}, interview.Deps{
		Store:     r.store,
		Bank:      r.store,
		Questions: interviewer,
		Gate:      interviewer,
		Clarifier: interviewer,
		Nudger:    interviewer,
		Feedback:  interviewer,
		Analyzer:  interviewer,
		Optimizer: interviewer,
		Directory: directory.New(r.store, r.cfg.Interview.HistoryLimit, r.logger),
		Retriever: backend,
		Notifier:  notifier,

		Interactions: r.store,

		Tracer: r.tel.Tracer("github.com/fyrsmithlabs/interviewd/internal/interview"),
		Meter:  r.tel.Meter("github.com/fyrsmithlabs/interviewd/internal/interview"),
	}, r.logger)
	if err != nil {
		_ = notifier.Close()
		_ = backend.Close()
		return nil, nil, fmt.Errorf("failed to create interview service: %w", err)
	}

	r.logger.Info(ctx, "interview service ready",
		zap.String("llm_provider", r.cfg.LLM.Provider),
		zap.String("llm_model", r.cfg.LLM.Model),
		logging.Secret("llm_api_key", r.cfg.LLM.APIKey),
		zap.String("retrieval", r.cfg.Retrieval.Backend),
		zap.Bool("events", r.cfg.Events.NATSURL != ""),
		zap.Bool("redaction", r.cfg.Redaction.Enabled),
		zap.Int("max_follow_ups", r.cfg.Interview.MaxFollowUps),
		zap.Int("max_rejections", r.cfg.Interview.MaxRejections))

	closer := func() {
		if err := notifier.Close(); err != nil {
			r.logger.Warn(ctx, "failed to close event publisher", zap.Error(err))
		}
		if err := backend.Close(); err != nil {
			r.logger.Warn(ctx, "failed to close retrieval backend", zap.Error(err))
		}
	}
	return svc, closer, nil
}
