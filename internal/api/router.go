package api

import (
	"errors"

	"receiptly/docs"
	"receiptly/internal/api/handlers"
	"receiptly/internal/apperr"
	"receiptly/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(receiptHandler *handlers.ReceiptHandler, cfg *config.Config, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(appLogger),
		BodyLimit:    int(cfg.Upload.MaxFileSize),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Importing the docs package registers the swagger spec through init().
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Post("/upload", receiptHandler.Upload)
	app.Get("/validate/:receipt_id", receiptHandler.Validate)
	app.Get("/process/:receipt_id", receiptHandler.Process)
	app.Get("/receipts", receiptHandler.ListReceipts)
	app.Get("/receipts/:id", receiptHandler.GetReceipt)

	return app
}

// errorHandler projects the apperr taxonomy onto HTTP statuses. Conflict
// details (the existing record and a hint) are merged into the body next to
// the error message.
func errorHandler(appLogger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			body := fiber.Map{"error": appErr.Error()}
			for key, value := range appErr.Details {
				body[key] = value
			}
			return c.Status(apperr.StatusCode(appErr)).JSON(body)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		appLogger.Error("Unhandled request error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
