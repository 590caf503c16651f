package server

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/alkime/voiceprompt/internal/config"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// setupSecurityMiddleware applies response hardening and, for loopback
// listeners, a Host allow-list so other origins cannot rebind to the status API.
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	stsSeconds := int64(0)
	if cfg.Env == config.EnvProduction {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	hosts := loopbackHosts(cfg.StatusAddr)

	router.Use(secure.New(secure.Config{
		AllowedHosts:          hosts,
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: config.BuildCSP(cfg.CSPMode),
		BadHostHandler: func(c *gin.Context) {
			logger.Warn("rejected status request", "host", c.Request.Host)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "host not allowed"})
		},
	}))

	logger.Debug("configured security middleware",
		"hsts_enabled", stsSeconds > 0,
		"csp_mode", cfg.CSPMode,
		"allowed_hosts", hosts,
	)
}

// loopbackHosts returns the Host values a loopback listener answers to. Other
// listeners get nil, which disables the check.
func loopbackHosts(addr string) []string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return nil
	}

	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return nil
		}
	}

	return []string{
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
		net.JoinHostPort("::1", port),
	}
}
