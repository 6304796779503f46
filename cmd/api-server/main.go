// Command api-server serves the storefront API: catalog bundles, carts,
// checkout and analytics.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	vitrine "github.com/xenking/vitrine/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := vitrine.LoadConfig()
		if err != nil {
			return err
		}
		return vitrine.Run(ctx, lg.Named("vitrine"), m, cfg)
	})
}
