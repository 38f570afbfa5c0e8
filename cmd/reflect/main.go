package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/reflect-runtime/engine"
	"github.com/wippyai/reflect-runtime/manifest"
	"github.com/wippyai/reflect-runtime/module"
	"github.com/wippyai/reflect-runtime/runtime"
)

// manifestFlags collects repeated -manifest flags.
type manifestFlags []string

func (m *manifestFlags) String() string { return strings.Join(*m, ",") }

func (m *manifestFlags) Set(s string) error {
	*m = append(*m, s)
	return nil
}

type options struct {
	manifests   manifestFlags
	call        string
	args        string
	metricsAddr string
	list        bool
	interactive bool
	watch       bool
	verbose     bool
}

func main() {
	var opts options
	flag.Var(&opts.manifests, "manifest", "Path to a module manifest (.yaml or .hcl); repeatable")
	flag.StringVar(&opts.call, "call", "", "Function to call: Module.Func or Module.Type.Func")
	flag.StringVar(&opts.args, "args", "", "Comma-separated arguments for -call")
	flag.StringVar(&opts.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address while watching")
	flag.BoolVar(&opts.list, "list", false, "List loaded modules and exit")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&opts.watch, "watch", false, "Reload manifests on change until interrupted")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.Parse()

	if len(opts.manifests) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: reflect -manifest <file> [-manifest <file>...] -list")
		fmt.Fprintln(os.Stderr, "       reflect -manifest <file> -call Module.Type.Func [-args 1,2]")
		fmt.Fprintln(os.Stderr, "       reflect -manifest <file> -i      (interactive mode)")
		fmt.Fprintln(os.Stderr, "       reflect -manifest <file> -watch  (reload on change)")
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	rt, err := runtime.New(ctx, runtime.Config{
		Logger:     logger,
		Registerer: reg,
		Engine:     &engine.Config{CloseOnContextDone: true},
	})
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			logger.Warn("runtime close", zap.Error(err))
		}
	}()

	if err := registerHosts(rt); err != nil {
		return fmt.Errorf("register hosts: %w", err)
	}

	if opts.watch {
		return watch(ctx, rt, reg, opts)
	}

	for _, path := range opts.manifests {
		if _, err := manifest.LoadFile(ctx, rt, path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	switch {
	case opts.interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("interactive mode requires a terminal")
		}
		return runInteractive(rt, strings.Join(opts.manifests, ", "))
	case opts.call != "":
		return call(ctx, rt, opts.call, opts.args)
	default:
		printModules(os.Stdout, rt)
		return nil
	}
}

func call(ctx context.Context, rt *runtime.Runtime, ref, raw string) error {
	fn, err := rt.Modules().ResolveFunction(ref)
	if err != nil {
		return err
	}
	args, err := parseArgs(fn, raw)
	if err != nil {
		return err
	}
	res, err := rt.Call(ctx, ref, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", ref, err)
	}
	fmt.Printf("%s = %s\n", ref, res)
	return nil
}

func watch(ctx context.Context, rt *runtime.Runtime, reg *prometheus.Registry, opts options) error {
	for _, path := range opts.manifests {
		w, err := manifest.NewWatcher(rt, path)
		if err != nil {
			return err
		}
		w.OnReload(func(_ *module.Module, err error) {
			if err == nil {
				printModules(os.Stdout, rt)
			}
		})
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		defer w.Stop()
	}

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.Logger().Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	fmt.Println("Watching manifests, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}
