package http

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"whitelist-bot/internal/common/middleware"
	"whitelist-bot/internal/service/export"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Exporter interface {
	Export(ctx context.Context, requesterID int64) (*export.Snapshot, error)
}

type Options struct {
	BotToken           string
	InitDataTTL        time.Duration
	CORSAllowedOrigins string
	Gatherer           prometheus.Gatherer
	Debug              bool
	Log                zerolog.Logger
}

// NewRouter builds the gin engine with health checks, metrics and the export API.
func NewRouter(store Pinger, exporter Exporter, opts Options) *gin.Engine {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(opts.Log))
	router.Use(middleware.Recovery(opts.Log))
	router.Use(cors.New(corsConfig(opts.CORSAllowedOrigins)))

	h := &handlers{store: store, exporter: exporter, log: opts.Log}

	router.GET("/", h.root)
	router.GET("/ping", h.ping)
	router.GET("/live", h.live)
	router.GET("/ready", h.ready)

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelegramInitData(opts.BotToken, opts.InitDataTTL))
	{
		v1.GET("/export", h.export)
	}

	return router
}

func corsConfig(origins string) cors.Config {
	cfg := cors.DefaultConfig()
	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
	}
	cfg.AllowMethods = []string{"GET", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.InitDataHeader}
	cfg.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	return cfg
}
