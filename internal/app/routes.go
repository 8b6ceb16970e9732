package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rankforge/core/internal/middleware"
	"github.com/rankforge/core/internal/modules/auth/owner"
	"github.com/rankforge/core/internal/modules/catalog/product"
	"github.com/rankforge/core/internal/modules/discovery/keyword"
	"github.com/rankforge/core/internal/modules/generation/ai"
	"github.com/rankforge/core/internal/modules/storage/archive"
	appconfigs "github.com/rankforge/core/internal/modules/system/configs"
	"github.com/rankforge/core/internal/modules/tasks/crontask"
	"github.com/rankforge/core/internal/pkg/bark"
	"github.com/rankforge/core/internal/pkg/nativelog"
	"github.com/rankforge/core/internal/pkg/prettylog"
	pkgredis "github.com/rankforge/core/internal/pkg/redis"
	"github.com/rankforge/core/internal/pkg/response"
	"github.com/rankforge/core/internal/pkg/taskqueue"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "rankforge-core",
		"version":  "1.0.0",
		"homepage": "https://github.com/rankforge/core",
		"issues":   "https://github.com/rankforge/core/issues",
	}

	apiPrefix := "/api/v2"

	// Shared services
	cfgSvc := appconfigs.NewService(db)

	// Bark push service for login alerts and rate-limit warnings.
	barkSvc := bark.New(func() (key, serverURL, siteTitle string) {
		cfg, err := cfgSvc.Get()
		if err != nil || !cfg.BarkOptions.Enable {
			return "", "", ""
		}
		return cfg.BarkOptions.Key, cfg.BarkOptions.ServerURL, cfg.Site.Title
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw(), barkSvc))
	r.Use(middleware.Idempotence(rc.Raw()))

	taskSvc := taskqueue.NewService(rc)

	// Versioned API
	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:             15 * time.Second,
		EnableCDNHeader: true,
		Disable:         a.cfg.IsDev(),
		SkipPaths:       httpCacheSkipPaths(apiPrefix),
	}))

	// App info endpoints
	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := prettylog.UptimeMs()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})

	cleanCache := func(c *gin.Context) {
		cfgSvc.Invalidate()
		deleted, err := middleware.PurgeHTTPCache(c.Request.Context(), rc.Raw())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":      0,
				"code":    http.StatusInternalServerError,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
	}
	api.GET("/clean_cache", authMW, cleanCache)
	api.GET("/clean_redis", authMW, func(c *gin.Context) {
		rc.Raw().FlushDB(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/logs/stream", authMW, logStream)

	// Config
	appconfigs.NewHandler(cfgSvc).RegisterRoutes(api, authMW)

	// Owner auth
	owner.NewHandler(owner.NewService(db), cfgSvc, barkSvc).RegisterRoutes(api, authMW)

	// Product catalog
	product.NewHandler(product.NewService(db)).RegisterRoutes(api, authMW)

	// Keyword discovery
	keyword.NewHandler(keyword.NewService(db, cfgSvc, a.logger)).RegisterRoutes(api, authMW)

	// AI generation
	aiSvc := ai.NewService(db, cfgSvc, taskSvc, a.logger)
	ai.NewHandler(aiSvc).RegisterRoutes(api, authMW)

	// Archives
	archiveSvc := archive.NewService(db, cfgSvc, a.cfg.ArchiveDir(), a.logger)
	archive.NewHandler(archiveSvc).RegisterRoutes(api, authMW)

	// Cron job management (admin)
	crontask.NewHandler(a.sched).RegisterRoutes(api, authMW)
}

func httpCacheSkipPaths(apiPrefix string) []string {
	p := strings.TrimSuffix(strings.TrimSpace(apiPrefix), "/")
	if p == "" {
		p = "/api/v2"
	}
	return []string{
		p + "/uptime",
		p + "/clean_cache",
		p + "/clean_redis",
		p + "/logs/stream",
		p + "/owner/allow-login",
		p + "/owner/check_logged",
		p + "/generation/blog/stream",
	}
}

// logStream tails the native log over SSE. Frames the writer publishes while
// the client is connected are forwarded as typed events; slow consumers drop
// frames rather than block the logger.
func logStream(c *gin.Context) {
	id, frames := nativelog.Subscribe(0)
	defer nativelog.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			payload, _ := json.Marshal(gin.H{"type": "log", "data": frame})
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
