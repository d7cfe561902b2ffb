// Command streamkit reads lines, filters and normalizes them, and writes them
// in fixed-size groups as JSON lines.
//
//	cat access.log | streamkit --match ' 5[0-9][0-9] ' --batch-size 50
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	streamerrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observe"
	"github.com/kbukum/streamkit/stream"
	"github.com/kbukum/streamkit/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "streamkit:", err)
		if streamerrors.IsCode(err, streamerrors.ErrCodeInvalidInput) {
			fmt.Fprintln(os.Stderr, "run 'streamkit --help' for usage")
		}
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration and usage errors and 1 for everything else.
func exitCode(err error) int {
	appErr, ok := streamerrors.As(err)
	if !ok {
		return 1
	}
	switch appErr.Code {
	case streamerrors.ErrCodeInvalidInput, streamerrors.ErrCodeInvalidConfig, streamerrors.ErrCodeMissingField:
		return 2
	default:
		return 1
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if v, _ := fs.GetBool("version"); v {
		_, err := fmt.Fprintln(stdout, version.String())
		return err
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}
	logger.Init(&cfg.Logging)
	log := logger.WithComponent("main")

	source := "stdin"
	if cfg.Pipeline.Input != "" {
		source = cfg.Pipeline.Input
	}
	logger.Register("pipeline", logger.WithComponent("pipeline").WithFields(logger.Fields("input", source)))
	defer logger.Unregister("pipeline")

	shutdown, err := observe.Setup(ctx, cfg.Telemetry, observe.ServiceInfo{
		Name:        cfg.Name,
		Version:     version.Get().Version,
		Environment: cfg.Environment,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}()

	obs, err := observe.New()
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg.Pipeline, obs, stdout)
	if err != nil {
		return err
	}

	in := stdin
	if cfg.Pipeline.Input != "" {
		f, err := os.Open(cfg.Pipeline.Input)
		if err != nil {
			return err
		}
		in = f
	}

	log.Debug("pipeline starting", logger.Fields(
		"batch_size", cfg.Pipeline.BatchSize,
		"match", cfg.Pipeline.Match,
		"version", version.String(),
	))

	err = drive(ctx, in, cfg.Pipeline.MaxLineSize, pipeline)
	return settle(ctx, log, err)
}

// settle treats a run stopped by a signal as a clean exit. An error that
// raced with the signal is logged rather than dropped.
func settle(ctx context.Context, log *logger.Logger, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("interrupted", logger.ErrorFields("drive", err))
		return nil
	}
	log.Info("interrupted")
	return nil
}

// drive feeds lines from in through pipeline. Reading happens in its own
// goroutine so a blocked read does not keep cancellation from reaching the
// pipeline; in is closed (when it is an io.Closer) once either side stops.
func drive(ctx context.Context, in io.Reader, maxLine int, pipeline stream.Transform[string, struct{}]) error {
	g, gctx := errgroup.WithContext(ctx)
	if c, ok := in.(io.Closer); ok {
		stopClose := context.AfterFunc(gctx, func() { _ = c.Close() })
		defer stopClose()
	}

	lines := make(chan string)
	g.Go(func() error {
		defer close(lines)
		src := stream.Lines(in, stream.WithMaxLineSize(maxLine))
		for {
			line, ok, err := src.Next(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if !ok {
				return nil
			}
			select {
			case lines <- line:
			case <-gctx.Done():
				return nil
			}
		}
	})
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = streamerrors.Internal(fmt.Errorf("pipeline panicked: %v", r))
			}
		}()
		err = stream.Run(gctx, pipeline(stream.FromChan(lines)))
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			// The reader failed first; its error is the one to report.
			return nil
		}
		return err
	})
	return g.Wait()
}
