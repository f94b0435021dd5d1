package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreconfig "github.com/AzielCF/az-connect/core/config"
	"github.com/AzielCF/az-connect/ui/rest"
	"github.com/AzielCF/az-connect/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the channel API over http",
	Long:  `Serve the REST API, the dashboard websocket and the Prometheus metrics endpoint.`,
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	initApp()
	cfg := coreconfig.Global

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		BodyLimit:               1 << 20,
		Network:                 "tcp",
		AppName:                 "Az-Connect",
		ServerHeader:            "Hidden",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())

	origins := strings.Join(cfg.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, cfg.App.BaseUrl) {
		origins += ", " + cfg.App.BaseUrl
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; connect-src 'self' ws: wss:;",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if cfg.App.Debug {
		app.Use(logger.New())
	}

	account, err := parseBasicAuth(cfg.App.BasicAuth)
	if err != nil {
		logrus.Fatalln(err.Error())
	}

	app.Get(cfg.App.BasePath+"/metrics", metricsCol.Handler())

	apiGroup := app.Group(cfg.App.BasePath + "/api")
	apiGroup.Use(basicauth.New(basicauth.Config{
		Users: account,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	}))

	rest.InitRestChannel(apiGroup, manager, cfg.Integration.EmbedVersion, cfg.Integration.ValidationTimeout+5*time.Second)
	rest.InitRestChatbot(apiGroup, manager)
	rest.InitRestMonitoring(apiGroup, eventMonitor, workerPool)
	rest.InitRestHealth(apiGroup, cfg.App.Version, healthChecks())
	wsHub.RegisterRoutes(apiGroup, manager)

	apiGroup.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "API Endpoint not found",
			"path":  c.Path(),
		})
	})

	if spec := cfg.Integration.HealthSchedule; spec != "" {
		if err := manager.Scheduler.Start(spec); err != nil {
			logrus.Fatalf("[SCHEDULER] Invalid health schedule %q: %v", spec, err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		StopApp()
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}

// healthChecks pings the dependencies the node was started with.
func healthChecks() map[string]rest.HealthCheck {
	checks := map[string]rest.HealthCheck{
		"database": func(ctx context.Context) string {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err.Error()
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err.Error()
			}
			return "ok"
		},
		"history": func(ctx context.Context) string {
			if err := historyDB.PingContext(ctx); err != nil {
				return err.Error()
			}
			return "ok"
		},
		"valkey": func(ctx context.Context) string {
			if vkClient == nil {
				return "disabled"
			}
			return vkClient.HealthStatus(ctx)
		},
	}
	return checks
}
