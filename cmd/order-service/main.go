package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/app"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

const envConfigPath = "ORDERS_CONFIG"

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level log.Level) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
}

// readConfig читает путь к YAML из -config или ORDERS_CONFIG и собирает конфигурацию.
func readConfig(args []string, getenv func(string) string) (app.Config, error) {
	fs := flag.NewFlagSet("order-service", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("config", getenv(envConfigPath), "path to YAML config (fallback: "+envConfigPath+")")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}
	return app.LoadConfig(*path)
}

func main() {
	setupLogger(log.InfoLevel)

	cfg, err := readConfig(os.Args[1:], os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	setupLogger(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"version":        version.GetVersion(),
	}).Info("запускаем order-service")

	if err := app.Run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("order-service остановлен")
}
