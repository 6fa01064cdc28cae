package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/itemlabs/go-items-api/internal/aqi"
	"github.com/itemlabs/go-items-api/internal/config"
	"github.com/itemlabs/go-items-api/internal/logging"
)

// One-shot job, run from cron or a scheduler: fetch today's readings and
// mail the report.
func main() {
	log := logging.New()
	cfg := config.LoadAQI()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := aqi.NewClient(cfg.BaseURL, cfg.Token)
	body := aqi.BuildReport(ctx, client, cfg.Cities, log)
	log.Info("report built", slog.Int("cities", len(cfg.Cities)))

	if os.Getenv("AQI_DRY_RUN") != "" {
		os.Stdout.WriteString(body)
		return
	}
	if err := aqi.SendReport(cfg, body); err != nil {
		log.Error("send report", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("report sent", slog.String("to", cfg.To))
}
