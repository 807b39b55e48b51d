// chatflowd runs the WhatsApp chatbot flow engine behind a Cloud API
// webhook: flows are loaded from a directory at startup, conversation state
// and transcripts go to the configured backends, and every inbound message
// drives one engine step.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tidechat/chatflow/pkg/chatflow"
	"github.com/tidechat/chatflow/pkg/chatflow/config"
	"github.com/tidechat/chatflow/pkg/chatflow/flowdef"
	"github.com/tidechat/chatflow/pkg/chatflow/state"
	"github.com/tidechat/chatflow/pkg/chatflow/transcript"
	"github.com/tidechat/chatflow/pkg/chatflow/webhook"
	"github.com/tidechat/chatflow/pkg/chatflow/whatsapp"
)

func main() {
	root := &cobra.Command{
		Use:          "chatflowd",
		Short:        "WhatsApp chatbot flow engine",
		SilenceUsage: true,
	}
	root.AddCommand(serveCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook endpoint and run flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.FromFile(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	return cmd
}

func serve(cfg config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	flows, err := buildFlowSource(cfg)
	if err != nil {
		return err
	}

	states, err := buildStateStore(cfg)
	if err != nil {
		return err
	}
	defer states.Close()

	transcripts, err := buildTranscriptStore(cfg)
	if err != nil {
		return err
	}
	if transcripts != nil {
		defer transcripts.Close()
	}

	gateway := whatsapp.NewClient(whatsapp.Config{
		Token:         cfg.WhatsApp.Token,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		BaseURL:       cfg.WhatsApp.BaseURL,
	})

	var engineTranscripts chatflow.TranscriptStore
	if transcripts != nil {
		engineTranscripts = transcripts
	}
	engine := chatflow.New(flows, states, gateway, engineTranscripts,
		chatflow.WithLogger(logger),
		chatflow.WithMetrics(cfg.Metrics),
		chatflow.WithTracing(cfg.Tracing),
		chatflow.WithMaxHops(cfg.MaxHops),
	)

	router := gin.New()
	router.Use(gin.Recovery())
	webhook.NewHandler(engine, engineTranscripts, cfg.VerifyToken, logger).Register(router)

	logger.Info("chatflowd listening", slog.String("addr", cfg.Listen))
	return router.Run(cfg.Listen)
}

func buildFlowSource(cfg config.Config) (chatflow.FlowSource, error) {
	if cfg.FlowsDir == "" {
		return flowdef.NewStaticSource(), nil
	}
	src, err := flowdef.LoadDir(cfg.FlowsDir)
	if err != nil {
		return nil, fmt.Errorf("load flows: %w", err)
	}
	return src, nil
}

func buildStateStore(cfg config.Config) (chatflow.StateStore, error) {
	switch cfg.State.Driver {
	case "memory":
		return state.NewMemoryStore(), nil
	case "redis":
		return state.NewRedisStore(state.RedisConfig{
			Addrs:     cfg.State.Addrs,
			Namespace: cfg.State.Namespace,
		}), nil
	default:
		return state.NewSQLiteStore(cfg.State.Path)
	}
}

func buildTranscriptStore(cfg config.Config) (transcript.Store, error) {
	switch cfg.Transcript.Driver {
	case "none":
		return nil, nil
	case "memory":
		return transcript.NewMemoryStore(), nil
	default:
		return transcript.NewSQLiteStore(cfg.Transcript.Path)
	}
}
