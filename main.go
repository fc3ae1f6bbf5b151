package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Pilmik/order-book-parser/src/cli"
	"github.com/Pilmik/order-book-parser/src/config"
	"github.com/Pilmik/order-book-parser/src/handlers"
	"github.com/Pilmik/order-book-parser/src/logger"
	"github.com/Pilmik/order-book-parser/src/metrics"
	"github.com/Pilmik/order-book-parser/src/models"
	"github.com/Pilmik/order-book-parser/src/routes"
)

const usage = `Usage: order-book-parser <command> [flags]

Commands:
  serve     run the HTTP API (default)
  parse     parse a snapshot file, optionally executing a market order
  credits   show credits information
`

func main() {
	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		serve()
	case "parse":
		if err := cli.RunParse(args, os.Stdout, os.Stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return
			}
			// already reported in full
			if !errors.Is(err, cli.ErrInvalidBook) && !errors.Is(err, cli.ErrTradeFailed) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(1)
		}
	case "credits":
		cli.Credits(os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

func serve() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(cfg.Logging, os.Stdout)
	defer logger.CloseLogger()
	log := logger.GetLogger()

	log.Info().Msg("Initializing Order Book Parser API")

	instrument, err := cfg.InstrumentConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid instrument configuration")
	}
	if instrument != nil {
		log.Info().Str("instrument", instrument.String()).Msg("Default instrument rules enabled")
	}

	m := metrics.New(log)
	bookHandler := handlers.NewBookHandler(handlers.Options{
		Instrument:   instrument,
		DefaultDepth: cfg.Book.DefaultDepth,
		MaxDepth:     cfg.Book.MaxDepth,
	}, m)

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(models.ErrorResponse{
				Error: err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, cfg, bookHandler, m)

	port := ":" + cfg.Server.Port

	serverError := make(chan error, 1)

	go func() {
		if err := app.Listen(port); err != nil {
			// edge case: ignore shutdown errors, only report real errors
			if err.Error() != "server is shutting down" {
				serverError <- err
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	log.Info().
		Str("port", port).
		Strs("endpoints", []string{
			"POST   /api/v1/orderbook/parse",
			"POST   /api/v1/orders/market",
			"GET    /health",
			"GET    /metrics",
		}).
		Msg("Order Book Parser API started")

	select {
	case err := <-serverError:
		log.Error().
			Err(err).
			Str("port", port).
			Str("hint", "Port may be already in use. Try: PORT=3000 go run main.go").
			Msg("Server failed to start")
		logger.CloseLogger()
		os.Exit(1)
	case <-quit:
		log.Info().Msg("Received shutdown signal, shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.Server.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	} else {
		log.Info().Msg("Shutdown complete")
	}
}
