// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/vgsales/base/log"
	"github.com/gorse-io/vgsales/server"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	serveCommand := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return errors.Trace(err)
			}
			if cmd.Flags().Changed("host") {
				conf.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("port") {
				conf.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			shutdownTracing, err := setupTracing(cmd.Context(), conf, "vgsales-server")
			if err != nil {
				return errors.Trace(err)
			}
			defer shutdownTracing()
			s := server.NewRestServer(conf)
			done := make(chan struct{})
			go func() {
				defer close(done)
				sigint := make(chan os.Signal, 1)
				signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
				<-sigint
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := s.Shutdown(ctx); err != nil {
					log.Logger().Error("failed to shutdown http server", zap.Error(err))
				}
			}()
			if err = s.StartHttpServer(); err != nil {
				return errors.Trace(err)
			}
			<-done
			log.Logger().Info("stop vgsales server successfully")
			return nil
		},
	}
	serveCommand.Flags().String("host", "", "host of the http server")
	serveCommand.Flags().Int("port", 0, "port of the http server")
	return serveCommand
}
