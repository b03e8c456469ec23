package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ib-77/parchan/internal/config"
	"github.com/ib-77/parchan/internal/logging"
	"github.com/ib-77/parchan/pkg/parchan"
	"github.com/ib-77/parchan/pkg/parchan/promobserver"
	"github.com/ib-77/parchan/pkg/rop"
	"github.com/ib-77/parchan/pkg/rop/core"
)

type runFlags struct {
	configPath  string
	concurrency int
	discard     bool
	keepGoing   bool
	shell       string
	logLevel    string
	logFormat   string
	metricsAddr string
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:     "run [command...]",
		Aliases: []string{"r"},
		Short:   "Run shell commands, printing their output in submission order",
		Long: `Run each argument as a shell command, or one command per line of stdin when
no arguments are given. At most --concurrency commands run at once; their
output is printed in the order the commands were given.

A failing command stops new commands from starting. Without --keep-going the
run ends there; with it, the failure is reported and the run continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewLoggerWithWriter(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			return runCommands(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a HuJSON config file")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "j", 0, "Maximum commands running at once (negative for unbounded)")
	cmd.Flags().BoolVar(&f.discard, "discard", false, "Drop command output; only report failures")
	cmd.Flags().BoolVarP(&f.keepGoing, "keep-going", "k", false, "Keep running after a command fails")
	cmd.Flags().StringVar(&f.shell, "shell", "", "Shell used to run each command [default: /bin/sh]")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format: text or json")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// resolve loads the config file and applies the flags given explicitly on top
// of it.
func (f *runFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		if f.concurrency == 0 {
			return nil, fmt.Errorf("--concurrency must not be 0")
		}
		cfg.Concurrency = f.concurrency
	}
	if flags.Changed("discard") {
		cfg.Discard = f.discard
	}
	if flags.Changed("keep-going") {
		cfg.KeepGoing = f.keepGoing
	}
	if flags.Changed("shell") {
		cfg.Shell = f.shell
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	return cfg, nil
}

func runCommands(parent context.Context, cfg *config.Config, args []string,
	stdin io.Reader, stdout, stderr io.Writer, logger *logrus.Logger) error {

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	ctx = core.WithProcessOptions(core.WithWorkerOptions(ctx, cfg.Concurrency), cfg.KeepGoing)

	opts := append(cfg.Channel().Options(), parchan.WithLogger(logger))
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		obs, err := promobserver.New(reg, "run")
		if err != nil {
			return err
		}
		opts = append(opts, parchan.WithObserver(obs))
		stop := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer stop()
	}

	ch := parchan.New[[]byte](ctx, opts...)
	feedErrs := core.Feed[parchan.Work[[]byte]](ctx, ch, commands(ctx, cfg.Shell, lines(ctx, args, stdin)))

	var failed []rop.Result[[]byte]
	for res := range core.Stream[[]byte](ctx, ch) {
		switch {
		case res.IsCancel():
			return res.Err()
		case res.IsFailure():
			fmt.Fprintf(stderr, "parchan: %v\n", res.Err())
			logger.WithFields(taskFields(res)).Debug("command failed")
			failed = append(failed, res)
		case res.IsSuccess():
			if _, err := stdout.Write(res.Result()); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}
		if len(failed) > 0 && !core.IsProcessRemainingEnabled(ctx, false) {
			break
		}
	}

	if err := parent.Err(); err != nil {
		return err
	}
	cancel()
	if err := <-feedErrs; err != nil && !rop.IsCancellationError(err) {
		return fmt.Errorf("submitting commands: %w", err)
	}

	if err := rop.Failures(failed); err != nil {
		logger.WithFields(logrus.Fields{
			"failed":    len(rop.GetErrors(err)),
			"submitted": ch.Len(),
		}).Error("run finished with failures")
		return fmt.Errorf("%d of %d commands failed", len(failed), ch.Len())
	}
	logger.WithField("submitted", ch.Len()).Debug("run finished")
	return nil
}

func taskFields(r rop.Indexed) logrus.Fields {
	return logrus.Fields{"index": r.Index(), "task_id": r.Id()}
}

// lines yields the commands to run: the arguments if any, otherwise the
// non-blank lines of stdin.
func lines(ctx context.Context, args []string, stdin io.Reader) <-chan string {
	if len(args) > 0 {
		return core.ToChanMany(ctx, args)
	}

	out := make(chan string)
	go func() {
		defer close(out)

		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// commands turns every line into a task running it through shell.
func commands(ctx context.Context, shell string, lines <-chan string) <-chan parchan.Work[[]byte] {
	out := make(chan parchan.Work[[]byte])
	go func() {
		defer close(out)

		for line := range lines {
			select {
			case out <- shellTask(ctx, shell, line):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func shellTask(ctx context.Context, shell, line string) parchan.Task[[]byte] {
	return parchan.Go(ctx, func(ctx context.Context) ([]byte, error) {
		output, err := exec.CommandContext(ctx, shell, "-c", line).CombinedOutput()
		if err != nil {
			if msg := bytes.TrimSpace(output); len(msg) > 0 {
				return nil, fmt.Errorf("%q: %w: %s", line, err, msg)
			}
			return nil, fmt.Errorf("%q: %w", line, err)
		}
		return output, nil
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, logger logrus.FieldLogger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
