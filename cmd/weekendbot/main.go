package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"weekendbot/internal/capture"
	"weekendbot/internal/config"
	"weekendbot/internal/datefmt"
	"weekendbot/internal/draft"
	"weekendbot/internal/ics"
	appLog "weekendbot/internal/log"
	"weekendbot/internal/metrics"
	"weekendbot/internal/model"
	"weekendbot/internal/render"
	"weekendbot/internal/session"
	"weekendbot/internal/telegram"
	"weekendbot/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	eventsPath string
	loadDraft  bool
	saveDraft  bool
	outPath    string
	icsPath    string
	pngPath    string
	send       bool
	serve      bool
	debug      bool
}

func (f flagConfig) hasAction() bool {
	return f.outPath != "" || f.icsPath != "" || f.pngPath != "" || f.send || f.serve || f.saveDraft
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	defer appLog.Sync()

	appLog.Info("weekendbot starting", "version", "0.1.0")

	if !flags.hasAction() {
		fmt.Fprintln(os.Stderr, "weekendbot: nothing to do; pass one of -out, -ics, -png, -send, -save-draft, -serve")
		flag.Usage()
		os.Exit(2)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.ApplyEnv(); err != nil {
		appLog.Error("invalid environment override", err)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"template_path", conf.TemplatePath,
		"draft_backend", conf.Draft.Backend,
		"draft_key", conf.Draft.Key,
		"autosave", conf.Draft.Autosave,
		"window_override", conf.Window != nil,
		"telegram_configured", conf.ValidateTelegram() == nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("weekendbot failed", err)
		appLog.Sync()
		os.Exit(1)
	}

	appLog.Info("weekendbot exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	m := metrics.New()

	store, err := openDraftStore(ctx, conf)
	if err != nil {
		return err
	}

	var dispatcher session.Dispatcher
	if flags.send || flags.serve {
		if err := conf.ValidateTelegram(); err != nil {
			if flags.send {
				return err
			}
			appLog.Info("telegram not configured; sending disabled")
		} else {
			client, err := telegram.NewClient(conf.Telegram.Token)
			if err != nil {
				return err
			}
			dispatcher = telegram.NewDispatcher(client, telegram.Channel{
				ChatID:  conf.Telegram.ChatID,
				TopicID: conf.Telegram.TopicID,
			}, m)
		}
	}

	override, err := conf.OverrideWindow()
	if err != nil {
		return err
	}

	sess := session.New(session.Options{
		Renderer:   render.New(conf.TemplatePath),
		Dispatcher: dispatcher,
		Drafts:     store,
		Override:   override,
		Location:   conf.Location(),
		Metrics:    m,
	})

	if flags.loadDraft {
		if _, err := sess.LoadDraft(ctx); err != nil {
			return err
		}
	}
	if flags.eventsPath != "" {
		if err := addEventsFile(sess, flags.eventsPath); err != nil {
			return err
		}
	}

	if flags.saveDraft {
		if err := sess.SaveDraft(ctx); err != nil {
			return err
		}
	}
	if flags.outPath != "" {
		if err := writeDocument(sess, flags.outPath); err != nil {
			return err
		}
	}
	if flags.icsPath != "" {
		if err := writeICS(sess, flags.icsPath); err != nil {
			return err
		}
	}
	if flags.pngPath != "" {
		if err := writePNG(ctx, conf, sess, flags.pngPath); err != nil {
			return err
		}
	}
	if flags.send {
		if err := sess.Send(ctx); err != nil {
			if !errors.Is(err, session.ErrSentDraftNotCleared) {
				return err
			}
			appLog.Error("announcement sent; clear the stored draft by hand", err)
		}
	}
	if flags.serve {
		return serve(ctx, conf, sess)
	}
	return nil
}

func openDraftStore(ctx context.Context, conf *config.Config) (session.DraftStore, error) {
	switch conf.Draft.Backend {
	case config.BackendRedis:
		client := draft.NewRedisClient(conf.Draft.RedisURL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := draft.Ping(pingCtx, client); err != nil {
			return nil, err
		}
		return draft.NewRedisStore(client, conf.Draft.Key), nil
	default:
		return draft.NewFileStore(conf.Draft.Dir, conf.Draft.Key), nil
	}
}

func addEventsFile(sess *session.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	events, err := model.ParseEventsYAML(data)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if _, err := sess.Add(ev); err != nil {
			return err
		}
	}
	appLog.Info("events file loaded", "path", path, "event_count", len(events))
	return nil
}

// writeDocument is the file sink: the document is written as rendered,
// meta charset tag included.
func writeDocument(sess *session.Session, path string) error {
	doc, err := sess.Document()
	if err != nil {
		return err
	}
	if err := writeFile(path, []byte(doc)); err != nil {
		return err
	}
	appLog.Info("document written", "path", path, "bytes", len(doc))
	return nil
}

func writeICS(sess *session.Session, path string) error {
	w := sess.Window()
	var buf bytes.Buffer
	if err := ics.Export(&buf, sess.Events(), datefmt.FormatRange(w.Start, w.End), time.Now()); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

func writePNG(ctx context.Context, conf *config.Config, sess *session.Session, path string) error {
	doc, err := sess.Document()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return capture.CapturePreviewPNG(ctx, capture.CaptureOptions{
		HTML:       render.PreviewPage(doc),
		OutputPath: path,
		Width:      conf.Preview.Width,
		Height:     conf.Preview.Height,
	})
}

func serve(ctx context.Context, conf *config.Config, sess *session.Session) error {
	if conf.Draft.Autosave != "" {
		stop, err := sess.StartAutosave(conf.Draft.Autosave)
		if err != nil {
			return err
		}
		defer stop()
	}

	srv := web.NewServer(conf, sess, prometheus.DefaultGatherer)
	return web.StartServer(ctx, conf, srv)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/weekendbot/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.eventsPath, "events", "", "YAML file with events to add to the working list")
	flag.BoolVar(&cfg.loadDraft, "load-draft", false, "Start from the stored draft")
	flag.BoolVar(&cfg.saveDraft, "save-draft", false, "Save the working list as the draft")
	flag.StringVar(&cfg.outPath, "out", "", "Write the rendered document to this file")
	flag.StringVar(&cfg.icsPath, "ics", "", "Write an iCalendar export to this file")
	flag.StringVar(&cfg.pngPath, "png", "", "Write a PNG preview to this file (needs Chromium)")
	flag.BoolVar(&cfg.send, "send", false, "Send the announcement and poll to Telegram")
	flag.BoolVar(&cfg.serve, "serve", false, "Run the HTTP authoring API")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
