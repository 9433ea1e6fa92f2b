package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"studybot/internal/api"
	"studybot/internal/api/handlers"
	"studybot/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Listen port (overrides SERVER_PORT)")
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, appLogger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if servePort != "" {
		cfg.Server.Port = servePort
	}

	appLogger.Info("Starting studybot service", zap.String("knowledge_base", cfg.Knowledge.Path))

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer app.Close()

	// warm the knowledge base snapshot
	status := app.chatService.Status()
	appLogger.Info("Knowledge base ready", zap.Int("entries", status.EntriesCount))

	chatHandler := handlers.NewChatHandler(app.chatService, appLogger)
	kbHandler := handlers.NewKnowledgeHandler(app.chatService, appLogger)

	server := api.SetupRouter(chatHandler, kbHandler, cfg.Server, appLogger)

	listenErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		listenErr <- server.Listen(addr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	appLogger.Info("Shutting down server")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	return nil
}
