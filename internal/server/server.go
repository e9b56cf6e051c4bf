// Package server is a development backend for the history-signals resource.
// It keeps every revision in memory and checks a static token.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sigtrail/sigtrail/internal/utils"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	// Token is the value expected in the Authorization header. Empty
	// disables the check.
	Token    string
	Resource string
	Store    *Store
}

func New(store *Store, resource, token string) *Server {
	if resource == "" {
		resource = "history-signals"
	}
	return &Server{
		Token:    token,
		Resource: strings.Trim(resource, "/"),
		Store:    store,
	}
}

// Handler builds the gin engine serving the resource.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	g := r.Group("/"+s.Resource, s.tokenAuth())
	g.GET("", s.handleList)
	g.GET("/:id", s.handleHistory)
	g.POST("", s.handleSubmit)

	return r
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s (resource /%s)", addr, s.Resource)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) tokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Token == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if got != s.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := utils.Log.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency":    time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry.Errorf("request failed: %s", c.Errors.String())
			return
		}
		entry.Debug("request completed")
	}
}
