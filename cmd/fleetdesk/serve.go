/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tomoncle/fleetdesk/internal/api"
	"github.com/tomoncle/fleetdesk/internal/i18n"
	"github.com/tomoncle/fleetdesk/internal/notify"
	"github.com/tomoncle/fleetdesk/internal/service"
	"github.com/tomoncle/fleetdesk/utils"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	mgr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Disconnect() }()

	if a.cfg.Database.Migrate.OnStartup {
		if err := a.migrations(mgr).RunMigrations(ctx); err != nil {
			return err
		}
	}

	publisher, err := notify.New(a.cfg.Notify, utils.NewLogger("NOTIFY"))
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	gin.SetMode(a.cfg.Server.Mode)
	handler := api.NewHandler(api.Options{
		DB: mgr.GetDB(),
		Deps: service.Deps{
			Messages:  i18n.MustLoad(),
			Publisher: publisher,
			Logger:    utils.NewLogger("SERVICE"),
		},
		Server: a.cfg.Server,
		Health: mgr.HealthCheck,
		Logger: utils.NewLogger("HTTP"),
	})

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
