// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package app wires the runtime: storage, session store, gateway and API
// client, built from the resolved configuration.
package app // import "github.com/toeirei/usermgr/internal/app"

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/toeirei/usermgr/internal/api"
	"github.com/toeirei/usermgr/internal/config"
	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/logging"
	"github.com/toeirei/usermgr/internal/session"
	"github.com/toeirei/usermgr/internal/storage"
)

// Options are the UI-provided hooks.
type Options struct {
	Notifier  gateway.Notifier
	Navigator gateway.Navigator
	// Registerer enables gateway metrics when set.
	Registerer prometheus.Registerer
	HTTPClient *http.Client
	// Store overrides the storage selected by the configuration.
	Store storage.Store
}

// App is one wired runtime.
type App struct {
	Config  config.Config
	Store   storage.Store
	Session *session.Store
	Gateway *gateway.Gateway
	API     *api.Client
}

// New opens storage, restores the session and binds the gateway to it.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	kv := opts.Store
	if kv == nil {
		var err error
		kv, err = storage.Open(ctx, cfg.Storage.Type, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	sess, err := session.New(ctx, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	gwOpts := []gateway.Option{}
	if opts.Notifier != nil {
		gwOpts = append(gwOpts, gateway.WithNotifier(opts.Notifier))
	}
	if opts.Navigator != nil {
		gwOpts = append(gwOpts, gateway.WithNavigator(opts.Navigator))
	}
	if opts.Registerer != nil {
		gwOpts = append(gwOpts, gateway.WithMetrics(opts.Registerer))
	}
	if opts.HTTPClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(opts.HTTPClient))
	}
	gw, err := gateway.New(gateway.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, sess, gwOpts...)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	client := api.New(gw)
	sess.UseAuthenticator(client)
	logging.Debugf("app: api %s, storage %q, logged in: %v", gw.BaseURL(), cfg.Storage.Type, sess.IsLoggedIn())

	return &App{Config: cfg, Store: kv, Session: sess, Gateway: gw, API: client}, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
