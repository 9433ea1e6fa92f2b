package api

import (
	"errors"

	"studybot/docs"
	"studybot/internal/api/handlers"
	"studybot/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	chatHandler *handlers.ChatHandler,
	kbHandler *handlers.KnowledgeHandler,
	serverCfg config.ServerConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "studybot",
		DisableStartupMessage: true,
		ReadTimeout:           serverCfg.ReadTimeout,
		WriteTimeout:          serverCfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				appLogger.Error("Unhandled request error",
					zap.String("path", c.Path()),
					zap.Error(err),
				)
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	api.Get("", kbHandler.Health)
	api.Get("/kb_status", kbHandler.KBStatus)
	api.Post("/chat", chatHandler.Chat)
	api.Post("/chat_stream", chatHandler.ChatStream)

	return app
}
