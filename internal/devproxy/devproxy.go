// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package devproxy is the development server: it forwards /api to the
// backend with the Host header rewritten to the target's, so a front-end
// served from another origin can talk to a local backend.
package devproxy // import "github.com/toeirei/usermgr/internal/devproxy"

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/toeirei/usermgr/internal/logging"
)

// APIPrefix is the path forwarded to the backend.
const APIPrefix = "/api"

const shutdownTimeout = 5 * time.Second

// Server is a configured dev server.
type Server struct {
	listen string
	target *url.URL
	e      *echo.Echo
}

// New builds a server listening on listen and forwarding to target.
func New(listen, target string) (*Server, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("devproxy: target %q must be an absolute http(s) url", target)
	}
	s := &Server{listen: listen, target: u}
	s.e = s.router()
	return s, nil
}

// Handler exposes the routing for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// Target is the backend address.
func (s *Server) Target() string { return s.target.String() }

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			logging.Debugf("devproxy: %s %s -> %d in %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	isAPI := func(c echo.Context) bool {
		p := c.Request().URL.Path
		return p == APIPrefix || strings.HasPrefix(p, APIPrefix+"/")
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isAPI(c) {
				c.Request().Host = s.target.Host
			}
			return next(c)
		}
	})
	e.Use(echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
		Skipper:  func(c echo.Context) bool { return !isAPI(c) },
		Balancer: echomiddleware.NewRandomBalancer([]*echomiddleware.ProxyTarget{{URL: s.target}}),
	}))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"service": "usermgr devserver", "api": APIPrefix, "target": s.target.String()})
	})
	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.e.Start(s.listen) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("devproxy: shutdown: %w", err)
		}
		return nil
	}
}
