// Command airctrl talks to Philips air purifiers over CoAP.
//
// This command demonstrates the full client stack:
//   - CLI argument parsing
//   - Configuration file support
//   - mDNS device discovery
//   - One-shot status reads and control writes
//   - A watched connection with automatic recovery
//   - Interactive command interface
//   - CBOR event capture for protocol debugging
//
// Usage:
//
//	airctrl [flags] <command> [args]
//
// Commands:
//
//	status                  Fetch and print the device status once
//	set <key>=<value> ...   Write one or more control values
//	observe                 Follow status updates until interrupted
//	discover [id]           Browse the local network for purifiers, or
//	                        wait for one with the given device ID or
//	                        instance name
//	interactive             Start the interactive shell
//
// Flags:
//
//	-config string      Configuration file path
//	-host string        Device hostname or IP address
//	-model string       Device model, e.g. AC2729 (enables filter and
//	                    humidifier commands)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-timeout duration   Assumed status push interval before the device
//	                    reports its own
//	-event-log string   Write protocol events to this CBOR file
//	-interface string   Network interface for discovery
//
// Examples:
//
//	# Find purifiers on the network
//	airctrl discover
//
//	# Read the status once
//	airctrl -host 192.168.1.50 status
//
//	# Switch the device on
//	airctrl -host 192.168.1.50 set pwr=1
//
//	# Follow updates with debug logging and event capture
//	airctrl -host 192.168.1.50 -log-level debug -event-log session.cbor observe
//
//	# Interactive shell with model-specific commands
//	airctrl -host 192.168.1.50 -model AC2729 interactive
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/airctrl-protocol/airctrl-go/cmd/airctrl/interactive"
	"github.com/airctrl-protocol/airctrl-go/pkg/client"
	"github.com/airctrl-protocol/airctrl-go/pkg/coordinator"
	"github.com/airctrl-protocol/airctrl-go/pkg/discovery"
	"github.com/airctrl-protocol/airctrl-go/pkg/eventlog"
)

// Config holds the resolved CLI configuration. Flag values win over
// config file values.
type Config struct {
	ConfigFile string
	Host       string
	Model      string
	LogLevel   string
	Timeout    time.Duration
	EventLog   string
	Interface  string
}

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&config.Host, "host", "", "Device hostname or IP address")
	flag.StringVar(&config.Model, "model", "", "Device model, e.g. AC2729")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.DurationVar(&config.Timeout, "timeout", 0, "Assumed status push interval")
	flag.StringVar(&config.EventLog, "event-log", "", "Write protocol events to this CBOR file")
	flag.StringVar(&config.Interface, "interface", "", "Network interface for discovery")
}

func main() {
	flag.Parse()

	if config.ConfigFile != "" {
		if err := loadConfigFile(config.ConfigFile, &config); err != nil {
			fmt.Fprintf(os.Stderr, "airctrl: %v\n", err)
			os.Exit(1)
		}
	}

	logger := setupLogging(config.LogLevel)

	cmd := flag.Arg(0)
	args := flag.Args()
	if len(args) > 0 {
		args = args[1:]
	}

	var err error
	switch cmd {
	case "status":
		err = runStatus(logger)
	case "set":
		err = runSet(logger, args)
	case "observe":
		err = runObserve(logger)
	case "discover":
		err = runDiscover(logger)
	case "interactive":
		err = runInteractive(logger)
	case "":
		flag.Usage()
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "airctrl: unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// openEventLog opens the event sink. With -event-log set the CBOR file
// logger is used; otherwise debug log level routes events to the
// console. The returned close func is always safe to call.
func openEventLog(logger *slog.Logger) (eventlog.Logger, func(), error) {
	if config.EventLog == "" {
		if strings.EqualFold(config.LogLevel, "debug") {
			return eventlog.NewSlogAdapter(logger), func() {}, nil
		}
		return eventlog.NoopLogger{}, func() {}, nil
	}

	fl, err := eventlog.NewFileLogger(config.EventLog)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	logger.Debug("event log open", "path", fl.Path())
	return fl, func() { _ = fl.Close() }, nil
}

func requireHost() error {
	if config.Host == "" {
		return fmt.Errorf("no device host: use -host or a config file")
	}
	return nil
}

func dialDevice(ctx context.Context, logger *slog.Logger, events eventlog.Logger) (*client.Client, error) {
	cfg := client.DefaultConfig()
	cfg.Logger = logger
	cfg.EventLogger = events
	return client.Dial(ctx, config.Host, cfg)
}

func runStatus(logger *slog.Logger) error {
	if err := requireHost(); err != nil {
		return err
	}

	events, closeEvents, err := openEventLog(logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dev, err := dialDevice(ctx, logger, events)
	if err != nil {
		return err
	}
	defer dev.Close()

	st, interval, err := dev.GetStatus(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	logger.Info("status fetched", "host", config.Host, "interval", interval)
	return nil
}

func runSet(logger *slog.Logger, args []string) error {
	if err := requireHost(); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("set: no key=value arguments")
	}

	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return fmt.Errorf("set: %q is not key=value", arg)
		}
		values[key] = parseControlValue(raw)
	}

	events, closeEvents, err := openEventLog(logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dev, err := dialDevice(ctx, logger, events)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.SetControlValues(ctx, values); err != nil {
		return err
	}
	logger.Info("control values written", "host", config.Host, "count", len(values))
	return nil
}

// parseControlValue maps a CLI string to the JSON value the device
// expects. Bare numbers are sent as numbers, everything else as-is.
func parseControlValue(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	return raw
}

func runObserve(logger *slog.Logger) error {
	if err := requireHost(); err != nil {
		return err
	}

	events, closeEvents, err := openEventLog(logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev, err := dialDevice(ctx, logger, events)
	if err != nil {
		return err
	}

	co := coordinator.New(dev, config.Host, coordinator.Config{
		Timeout:     config.Timeout,
		Logger:      logger,
		EventLogger: events,
	})
	defer co.Shutdown()

	if err := co.FirstRefresh(ctx); err != nil {
		return err
	}

	unsubscribe := co.AddListener(func() {
		out, err := json.Marshal(co.Status())
		if err != nil {
			return
		}
		fmt.Println(string(out))
	})
	defer unsubscribe()

	logger.Info("observing", "host", config.Host)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
	return nil
}

func runDiscover(logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), discovery.BrowseTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{
		Interface: config.Interface,
		Logger:    logger,
	})

	// With an argument, stop at the first purifier matching that device
	// ID or instance name.
	if id := flag.Arg(1); id != "" {
		svc, err := browser.Find(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", svc.InstanceName)
		if svc.ModelID != "" {
			fmt.Printf("  model:   %s\n", svc.ModelID)
		}
		if svc.Name != "" {
			fmt.Printf("  name:    %s\n", svc.Name)
		}
		fmt.Printf("  address: %s:%d\n", svc.Addr(), svc.Port)
		return nil
	}

	results, err := browser.Browse(ctx)
	if err != nil {
		return err
	}

	found := 0
	for svc := range results {
		found++
		fmt.Printf("%s\n", svc.InstanceName)
		if svc.ModelID != "" {
			fmt.Printf("  model:   %s\n", svc.ModelID)
		}
		if svc.Name != "" {
			fmt.Printf("  name:    %s\n", svc.Name)
		}
		fmt.Printf("  address: %s:%d\n", svc.Addr(), svc.Port)
	}

	if found == 0 {
		logger.Info("no purifiers found")
	}
	return nil
}

func runInteractive(logger *slog.Logger) error {
	if err := requireHost(); err != nil {
		return err
	}

	events, closeEvents, err := openEventLog(logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev, err := dialDevice(ctx, logger, events)
	if err != nil {
		return err
	}

	co := coordinator.New(dev, config.Host, coordinator.Config{
		Timeout:     config.Timeout,
		Logger:      logger,
		EventLogger: events,
	})
	defer co.Shutdown()

	if err := co.FirstRefresh(ctx); err != nil {
		return err
	}

	sh, err := interactive.New(co, config.Model, logger)
	if err != nil {
		return err
	}
	// Redirect log output through readline to keep the prompt intact.
	logger = slog.New(slog.NewTextHandler(sh.Stdout(), nil))
	go sh.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}
	return nil
}
