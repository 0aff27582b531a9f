package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrutov/leobot/internal/channel/telegram"
	"github.com/mkrutov/leobot/internal/config"
	"github.com/mkrutov/leobot/internal/conversation"
	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/gateway"
	"github.com/mkrutov/leobot/internal/llm"
	"github.com/mkrutov/leobot/internal/logging"
	"github.com/mkrutov/leobot/internal/orchestrator"
	"github.com/mkrutov/leobot/internal/resolver"
	"github.com/mkrutov/leobot/internal/responder"
	"github.com/mkrutov/leobot/internal/sender"
	"github.com/mkrutov/leobot/internal/store"
	"github.com/mkrutov/leobot/internal/trigger"
)

func newRunCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Rebuild the logger from config once it is loaded; the --log-level
			// flag still wins when given.
			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			if cfg.Logging.File != "" {
				logPath := cfg.Logging.File
				if !filepath.IsAbs(logPath) {
					logPath = filepath.Join(paths.Logs, logPath)
				}
				log = logging.NewWithFile(logPath, level)
			} else {
				log = logging.New(nil, level)
			}

			// Conversation store (in-memory or SQLite)
			var convos conversation.Store
			if cfg.Store.Backend == "sqlite" {
				dbPath := filepath.Join(paths.Data, "leobot.db")
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				convos = store.NewSQLiteConversationStore(db)
				log.Info().Str("path", dbPath).Msg("using SQLite conversation store")
			} else {
				convos = conversation.NewMemoryStore()
				log.Info().Msg("using in-memory conversation store")
			}

			client := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
			resp := responder.New(responder.Config{
				Model:        cfg.OpenAI.Model,
				Temperature:  float32(cfg.OpenAI.Temperature),
				MaxTokens:    cfg.OpenAI.MaxTokens,
				SystemPrompt: cfg.Bot.SystemPrompt(),
			}, client, convos, log)

			transport := telegram.New(cfg.Telegram, log)
			snd := sender.New(transport, log)
			res := resolver.New(transport, log)
			detector := trigger.NewDetector(cfg.Bot.TriggerPhrases)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var events orchestrator.Events
			if cfg.Gateway.Enabled {
				hub := gateway.NewHub(log)
				srv := gateway.New(cfg.Gateway.Bind, cfg.Gateway.Port, convos, hub, log)
				if err := srv.Start(); err != nil {
					return fmt.Errorf("starting gateway: %w", err)
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Stop(shutdownCtx)
				}()
				events = hub
			}

			orch := orchestrator.New(orchestrator.Config{
				TriggerSource: cfg.Telegram.TriggerBot,
				Greeting:      cfg.Bot.Greeting,
				SystemPrompt:  cfg.Bot.SystemPrompt(),
			}, detector, res, convos, resp, snd, transport, events, log)

			transport.OnMessage(func(msg domain.InboundMessage) {
				orch.HandleMessage(ctx, msg)
			})

			log.Info().Str("triggerBot", cfg.Telegram.TriggerBot).Msg("starting telegram transport")
			return transport.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override gateway bind address")

	return cmd
}
