// Package web serves the conversion HTTP API.
package web

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/r9s-ai/ngx2edge/internal/logx"
	"github.com/r9s-ai/ngx2edge/internal/requestid"
)

// Options assemble the API server.
type Options struct {
	Listen       string
	AuthToken    string
	H2C          bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AccessLog    bool
	Color        bool
}

// Run builds the router and serves until the listener fails.
func Run(opts Options) error {
	listen := strings.TrimSpace(opts.Listen)
	if listen == "" {
		return errors.New("empty listen address")
	}
	engine := NewRouter(opts, nil)

	var handler http.Handler = engine
	if opts.H2C {
		handler = h2c.NewHandler(engine, &http2.Server{})
	}
	srv := &http.Server{
		Addr:         listen,
		Handler:      handler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	log.Printf("ngx2edge api listening on %s h2c=%v", listen, opts.H2C)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// NewRouter assembles the gin engine. A nil accessLogger logs to stdout.
func NewRouter(opts Options, accessLogger *log.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware(requestid.DefaultHeaderKey))
	if opts.AccessLog {
		r.Use(requestLogger(accessLogger, opts.Color, requestid.DefaultHeaderKey))
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	if token := strings.TrimSpace(opts.AuthToken); token != "" {
		api.Use(authMiddleware(token))
	}
	api.GET("/targets", handleTargets)
	api.POST("/convert", handleConvert)
	api.POST("/validate", handleValidate)

	return r
}

func requestIDMiddleware(headerKey string) gin.HandlerFunc {
	headerKey = requestid.ResolveHeaderKey(headerKey)
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerKey))
		if id == "" {
			id = requestid.Gen()
		}
		c.Header(headerKey, id)
		c.Set(headerKey, id)
		c.Next()
	}
}

func requestLogger(l *log.Logger, color bool, requestIDHeaderKey string) gin.HandlerFunc {
	requestIDHeaderKey = requestid.ResolveHeaderKey(requestIDHeaderKey)
	if l == nil {
		l = log.New(os.Stdout, "", 0)
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		l.Println(logx.FormatAccessLine(
			time.Now(),
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			c.Request.URL.Path,
			c.GetString(requestIDHeaderKey),
			color,
		))
	}
}

func authMiddleware(token string) gin.HandlerFunc {
	expected := strings.TrimSpace(token)
	return func(c *gin.Context) {
		got := ""
		if v := strings.TrimSpace(c.GetHeader("Authorization")); strings.HasPrefix(v, "Bearer ") {
			got = strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
		}
		if got == "" {
			got = strings.TrimSpace(c.GetHeader("X-Api-Key"))
		}
		if expected != "" && subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1 {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"ok":    false,
			"error": "unauthorized",
		})
	}
}
