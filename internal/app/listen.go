package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/lampwake/internal/asr"
	"github.com/rbright/lampwake/internal/audio"
	"github.com/rbright/lampwake/internal/config"
	"github.com/rbright/lampwake/internal/dispatch"
	"github.com/rbright/lampwake/internal/engine"
	"github.com/rbright/lampwake/internal/executor"
	"github.com/rbright/lampwake/internal/indicator"
	"github.com/rbright/lampwake/internal/ipc"
	"github.com/rbright/lampwake/internal/recognition"
	"github.com/rbright/lampwake/internal/session"
)

// commandListen owns the runtime socket for the lifetime of one session.
func (r Runner) commandListen(ctx context.Context, cfg config.Config, fromStdin bool, logger *slog.Logger, logPath string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			logger.Warn("control socket owned by another session", "socket", socketPath, "error", err.Error())
		}
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	backend, err := executor.Open(cfg.Executor, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("executor close failed", "error", err.Error())
		}
	}()

	c, g, err := composeGrammar(cfg.Session, backend)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	player := indicator.NewPlayer(cfg.Feedback, logger)
	defer player.Wait()

	dispatcher := dispatch.New(logger, c, player)

	recognizer, closeEngine, err := r.openEngine(ctx, cfg, fromStdin, logger, logPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeEngine()

	controller := session.NewController(logger, recognizer, g, dispatcher, player, session.Options{
		Language:       cfg.Recognizer.LanguageCode,
		SilenceTimeout: cfg.Session.SilenceTimeout(),
		TickInterval:   cfg.Session.TickInterval(),
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Err != nil && !errors.Is(result.Err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
	}
	fmt.Fprintf(r.Stdout, "dispatched=%d ignored=%d timeouts=%d\n", result.Dispatched, result.Ignored, result.Timeouts)
	return 0
}

// openEngine returns the recognition engine for this run and its cleanup.
func (r Runner) openEngine(
	ctx context.Context,
	cfg config.Config,
	fromStdin bool,
	logger *slog.Logger,
	logPath string,
) (recognition.Engine, func(), error) {
	if fromStdin || cfg.Recognizer.Mode == config.RecognizerText {
		in := r.Stdin
		if in == nil {
			in = os.Stdin
		}
		return engine.NewText(in, cfg.Recognizer.LanguageCode, logger), func() {}, nil
	}

	var dump *os.File
	if cfg.Debug.EnableGRPCDump {
		file, err := createDebugFile(logPath, "grpc", "json")
		if err != nil {
			return nil, nil, err
		}
		dump = file
	}
	closeDump := func() {
		if dump != nil {
			_ = dump.Close()
		}
	}

	asrCfg := asr.Config{Endpoint: cfg.Recognizer.GRPC, DialTimeout: cfg.Recognizer.DialTimeout()}
	if dump != nil {
		asrCfg.DebugResponseSinkJSON = dump
		logger.Info("grpc dump enabled", "path", dump.Name())
	}
	client, err := asr.Dial(ctx, asrCfg)
	if err != nil {
		closeDump()
		return nil, nil, err
	}

	stream := engine.NewStream(engine.StreamConfig{
		Client: client,
		OpenAudio: func(ctx context.Context) (engine.AudioSource, error) {
			capture, selection, err := audio.Listen(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
			if err != nil {
				return nil, err
			}
			if selection.Warning != "" {
				logger.Warn("audio device fallback", "warning", selection.Warning)
			}
			logger.Info("audio capture started", "device", selection.Device.ID, "fallback", selection.Fallback)
			return capture, nil
		},
		MinConfidence: float32(cfg.Recognizer.MinConfidence),
		OpenTimeout:   cfg.Recognizer.OpenTimeout(),
		Logger:        logger,
	})

	return stream, func() {
		_ = client.Close()
		closeDump()
	}, nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"session_id", result.SessionID,
		"profile", result.Profile.ID,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"dispatched", result.Dispatched,
		"ignored", result.Ignored,
		"timeouts", result.Timeouts,
	}

	if result.Err != nil && !errors.Is(result.Err, context.Canceled) {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

// createDebugFile opens a timestamped artifact in a debug directory beside the log file.
func createDebugFile(logPath string, prefix string, extension string) (*os.File, error) {
	debugDir := filepath.Join(filepath.Dir(logPath), "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}
