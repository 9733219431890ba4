// Command egress-webhook is a small gin-based ingest service: external
// systems (a BIM authoring tool's export hook, a CI pipeline) POST a
// materialized geometry file to /webhook/process-file and get back a run
// manifest summary, without standing up the full chi-based API in
// cmd/egress. It mounts the shared swaggo spec from internal/api/docs at
// /docs for discoverability.
package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "egress/internal/api/docs"
	"egress/internal/config"
)

func main() {
	cfgPath := os.Getenv("EGRESS_CONFIG")
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg = config.Default()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if !cfg.Features.EnableWebhook {
		fmt.Fprintln(os.Stderr, "webhook ingest is disabled by config (features.enable_webhook)")
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Telemetry.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.Telemetry.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	h := newHandlers(cfg, logger)

	r := gin.New()
	r.Use(ginLogger(logger), gin.Recovery())
	r.GET("/healthz", h.healthz)
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	webhook := r.Group("/webhook")
	webhook.Use(verifyWebhookSecret(cfg.Security.WebhookSecret))
	webhook.POST("/process-file", h.processFile)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1)
	logger.Sugar().Infof("egress-webhook listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Sugar().Fatalf("server error: %v", err)
	}
}
