// Package runner wires configuration, logging and telemetry for the
// integration's entry points.
package runner

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/store/memory"
	"github.com/julien-nc/integration-suitecrm/store/postgres"
	"github.com/julien-nc/integration-suitecrm/store/sqlite"
	"github.com/julien-nc/integration-suitecrm/tlmt"
	"github.com/julien-nc/integration-suitecrm/tlmt/gonoop"
	"github.com/julien-nc/integration-suitecrm/tlmt/goposthog"
)

const (
	RunModeWeb = iota + 1
	RunModeSweep
	RunModeQueue
)

var (
	ErrInvalidRunMode = errors.New("invalid run mode")
)

// Runner is one entry point of the integration.
type Runner interface {
	Run(ctx context.Context) error
	Close(ctx context.Context) error
}

type Config struct {
	Addr             string
	DataFolder       string
	Dsn              string
	SweepOnce        bool
	QueueRunner      bool
	Debug            bool
	DisableTelemetry bool
	RunMode          int
}

func ParseConfig() *Config {
	cfg := Config{}

	flag.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on for the web server")
	flag.StringVar(&cfg.DataFolder, "data-folder", "data", "data folder for the sqlite config store")
	flag.StringVar(&cfg.Dsn, "dsn", "", "postgres connection string for the config store [default: sqlite]")
	flag.BoolVar(&cfg.SweepOnce, "sweep", false, "run one alert sweep and exit")
	flag.BoolVar(&cfg.QueueRunner, "queue", false, "run the redis-backed queue worker with the periodic sweep")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.Parse()

	if cfg.Dsn == "" {
		cfg.Dsn = os.Getenv("SUITECRM_DSN")
	}

	if cfg.SweepOnce && cfg.QueueRunner {
		panic("sweep and queue modes are mutually exclusive")
	}

	switch {
	case cfg.SweepOnce:
		cfg.RunMode = RunModeSweep
	case cfg.QueueRunner:
		cfg.RunMode = RunModeQueue
	default:
		cfg.RunMode = RunModeWeb
	}

	return &cfg
}

// NewStore opens the configuration store selected by cfg: postgres when a
// DSN is set, sqlite otherwise. An empty data folder falls back to memory.
func NewStore(cfg *Config) (store.Store, error) {
	if cfg.Dsn != "" {
		return postgres.New(cfg.Dsn)
	}

	if cfg.DataFolder == "" {
		return memory.New(), nil
	}

	if err := os.MkdirAll(cfg.DataFolder, os.ModePerm); err != nil {
		return nil, err
	}

	return sqlite.New(filepath.Join(cfg.DataFolder, "config.db"))
}

// NewLogger builds the process logger.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

// Telemetry returns the process-wide telemetry sink. Without a PostHog key,
// or with DISABLE_TELEMETRY=1, events are discarded.
func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		if os.Getenv("DISABLE_TELEMETRY") == "1" {
			telemetry = gonoop.New()

			return
		}

		apiKey := os.Getenv("POSTHOG_API_KEY")
		if apiKey == "" {
			telemetry = gonoop.New()

			return
		}

		endpoint := os.Getenv("POSTHOG_ENDPOINT")
		if endpoint == "" {
			endpoint = "https://eu.i.posthog.com"
		}

		val, err := goposthog.New(apiKey, endpoint)
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(0)
		if err != nil {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		lineWidth := runewidth.StringWidth(line)
		paddingRight := contentWidth - lineWidth

		if paddingRight < 0 {
			paddingRight = 0
		}

		builder.WriteString(fmt.Sprintf("║ %s%s ║\n", line, strings.Repeat(" ", paddingRight)))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

func Banner() {
	message1 := "🔗 SuiteCRM integration"
	message2 := "Bridges host users to a SuiteCRM instance: reminders, alerts and unified search"

	fmt.Fprintln(os.Stderr, banner([]string{message1, message2}, 0))
}
