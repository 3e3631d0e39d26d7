// Command api-server serves the product review API.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	desk "github.com/xenking/product-desk/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, t *app.Telemetry) error {
		cfg, err := desk.LoadConfig()
		if err != nil {
			return err
		}
		lg.Info("Starting product desk API",
			zap.String("addr", cfg.Addr),
			zap.Bool("events", cfg.AMQPURL != ""),
		)
		return desk.Run(ctx, lg, t, cfg)
	})
}
