// Command josser calls a JSON-RPC 1.0 method and prints the result.
//
//	josser [flags] <method> [json-array-params]
//
// With -count above one the call is repeated as a load test and a summary is
// printed instead of the result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	josser "github.com/C3rb/Josser"
	"github.com/C3rb/Josser/pkg/config"
	jerrors "github.com/C3rb/Josser/pkg/errors"
	"github.com/C3rb/Josser/pkg/loadtest"
	"github.com/C3rb/Josser/pkg/logging"
	"github.com/C3rb/Josser/pkg/transport"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitFault   = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	envFile     string
	endpoint    string
	transport   string
	codec       string
	notify      bool
	id          string
	logLevel    string
	metricsAddr string
	count       int
	concurrency int
	rate        float64
	version     bool
}

func (o *options) bind(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "YAML config file")
	fs.StringVar(&o.envFile, "env-file", "", "load JOSSER_* variables from this file (default .env when present)")
	fs.StringVar(&o.endpoint, "endpoint", "", "JSON-RPC endpoint URL")
	fs.StringVar(&o.transport, "transport", "", "transport type (http, websocket)")
	fs.StringVar(&o.codec, "codec", "", "wire encoding (json, cbor)")
	fs.BoolVar(&o.notify, "notify", false, "send a notification and do not wait for a reply")
	fs.StringVar(&o.id, "id", "", "request id; generated when empty")
	fs.StringVar(&o.logLevel, "log-level", "", "log verbosity (debug, info, warn, error, none)")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	fs.IntVar(&o.count, "count", 1, "number of calls; more than one runs a load test")
	fs.IntVar(&o.concurrency, "concurrency", 1, "calls in flight during a load test")
	fs.Float64Var(&o.rate, "rate", 0, "load test calls per second (0 = unlimited)")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("josser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts.bind(fs)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(fs.Output(), "josser %s\n\nusage: josser [flags] <method> [json-array-params]\n\n", josser.Version)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if opts.version {
		_, _ = fmt.Fprintf(stdout, "josser %s\n", josser.Version)
		return exitOK
	}

	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return exitUsage
	}
	method := fs.Arg(0)
	var params interface{}
	if fs.NArg() == 2 {
		if err := json.Unmarshal([]byte(fs.Arg(1)), &params); err != nil {
			_, _ = fmt.Fprintf(stderr, "params are not valid JSON: %v\n", err)
			return exitUsage
		}
	}
	if opts.count < 1 {
		_, _ = fmt.Fprintln(stderr, "-count must be at least 1")
		return exitUsage
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return exitFailure
	}

	rt, err := josser.NewClientFromConfig(cfg, josser.WithLogOutput(stderr))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			rt.Logger.WithError(err).Warn("Shutdown failed")
		}
	}()

	if rt.Metrics != nil {
		// stopped by rt.Shutdown
		if err := rt.Metrics.Start(ctx); err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return exitFailure
		}
		rt.Logger.Info("Serving metrics", logging.String("addr", rt.Metrics.ListenAddr()))
	}

	if opts.count > 1 {
		return runLoad(ctx, rt, opts, method, params, stdout)
	}

	if opts.notify {
		if err := rt.Client.Notify(ctx, method, params); err != nil {
			return reportError(stderr, err)
		}
		return exitOK
	}

	resp, err := rt.Client.RequestWithID(ctx, method, params, parseID(opts.id))
	if err != nil {
		return reportError(stderr, err)
	}
	out, err := json.MarshalIndent(resp.Result(), "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "result cannot be printed as JSON: %v\n", err)
		return exitFailure
	}
	_, _ = fmt.Fprintln(stdout, string(out))
	return exitOK
}

// loadConfig layers defaults, .env files, the YAML file, JOSSER_* variables
// and finally flags.
func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return cfg, err
	}

	if opts.configPath != "" {
		if err := cfg.LoadFile(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	if opts.transport != "" {
		cfg.Transport.Type = opts.transport
	}
	if opts.codec != "" {
		cfg.Codec = opts.codec
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metricsAddr
	}
	return cfg, nil
}

// parseID keeps integer ids numeric.
func parseID(s string) interface{} {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func runLoad(ctx context.Context, rt *josser.Runtime, opts options, method string, params interface{}, stdout io.Writer) int {
	lt, err := loadtest.New(rt.Client, loadtest.Config{
		Method:         method,
		Params:         params,
		Notify:         opts.notify,
		Requests:       opts.count,
		Concurrency:    opts.concurrency,
		RateLimit:      opts.rate,
		ReportInterval: 5 * time.Second,
	}, rt.Logger)
	if err != nil {
		rt.Logger.WithError(err).Error("Load test setup failed")
		return exitUsage
	}

	result, err := lt.Run(ctx)
	if err != nil {
		rt.Logger.WithError(err).Warn("Load test interrupted")
	}
	result.Print(stdout)

	if stats, ok := transport.StatsOf(rt.Client.Transport()); ok {
		ex := stats.Sends
		if opts.notify {
			ex = stats.Notifications
		}
		_, _ = fmt.Fprintf(stdout, "\nTransport: %d ok, %d failed, %d bytes out, %d bytes in\n",
			ex.Success, ex.Errors, ex.BytesOut, ex.BytesIn)
	}

	if err != nil || result.FailedRequests > 0 {
		return exitFailure
	}
	return exitOK
}

func reportError(stderr io.Writer, err error) int {
	if fault, ok := jerrors.AsRPCFault(err); ok {
		_, _ = fmt.Fprintf(stderr, "remote fault %d: %s\n", fault.Code, fault.Message)
		if fault.Data != nil {
			if data, err := json.Marshal(fault.Data); err == nil {
				_, _ = fmt.Fprintf(stderr, "data: %s\n", data)
			}
		}
		return exitFault
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	return exitFailure
}
