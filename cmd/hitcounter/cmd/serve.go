/*
   hitcounter is a networked registry of named counters
   Copyright (C) 2024 Timothy Drysdale <timothy.d.drysdale@gmail.com>

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as
   published by the Free Software Foundation, either version 3 of the
   License, or (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //ok in production https://medium.com/google-cloud/continuous-profiling-of-go-programs-96d4416af77b
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/practable/hitcounter/internal/api"
	"github.com/practable/hitcounter/internal/counter"
	"github.com/practable/hitcounter/internal/logging"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the counter server",
	Long: `Serve counters over HTTP. Set parameters with environment
variables, for example:

export HITCOUNTER_HOST=0.0.0.0
export HITCOUNTER_PORT=8080
export HITCOUNTER_URL=https://example.io/hits
export HITCOUNTER_LOG_LEVEL=warn
export HITCOUNTER_LOG_FORMAT=json
export HITCOUNTER_LOG_FILE=/var/log/hitcounter/hitcounter.log
export HITCOUNTER_MAX_CONNECTIONS=1024
export HITCOUNTER_METRICS=true
export HITCOUNTER_METRICS_COUNTERS=false
export HITCOUNTER_PROFILE=false
export HITCOUNTER_PORT_PROFILE=6061
export HITCOUNTER_SHUTDOWN_TIMEOUT=5s
hitcounter serve

Notes:
HITCOUNTER_URL is only needed when clients reach the server through a proxy
that does not set X-Forwarded-Proto; otherwise URLs are built from each request.
HITCOUNTER_METRICS_COUNTERS adds a hitcounter_counter_value series for every
counter name; leave it off unless the set of names is known to stay small.
The log file is reopened on SIGHUP; if it cannot be opened, logs go to stderr.
`,
	Run: func(cmd *cobra.Command, args []string) {

		viper.SetEnvPrefix("HITCOUNTER")
		viper.AutomaticEnv()

		viper.SetDefault("host", "0.0.0.0")
		viper.SetDefault("log_file", "stdout")
		viper.SetDefault("log_format", "json")
		viper.SetDefault("log_level", "warn")
		viper.SetDefault("max_connections", 0)
		viper.SetDefault("metrics", true)
		viper.SetDefault("metrics_counters", false)
		viper.SetDefault("port", 8080)
		viper.SetDefault("port_profile", 6061)
		viper.SetDefault("profile", false)
		viper.SetDefault("shutdown_timeout", "5s")
		viper.SetDefault("url", "")

		host := viper.GetString("host")
		logFile := viper.GetString("log_file")
		logFormat := viper.GetString("log_format")
		logLevel := viper.GetString("log_level")
		maxConnections := viper.GetInt("max_connections")
		metrics := viper.GetBool("metrics")
		metricsCounters := viper.GetBool("metrics_counters")
		port := viper.GetInt("port")
		portProfile := viper.GetInt("port_profile")
		profile := viper.GetBool("profile")
		shutdownTimeoutStr := viper.GetString("shutdown_timeout")
		URL := viper.GetString("url")

		// parse durations

		shutdownTimeout, err := time.ParseDuration(shutdownTimeoutStr)

		if err != nil {
			fmt.Println("cannot parse duration in HITCOUNTER_SHUTDOWN_TIMEOUT=" + shutdownTimeoutStr)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// set up logging
		err = logging.Setup(ctx, logging.Config{
			Level:  logLevel,
			Format: logFormat,
			File:   logFile,
		})

		if err != nil {
			fmt.Println("HITCOUNTER_LOG_* " + err.Error())
			os.Exit(1)
		}

		// Report useful info
		log.Infof("hitcounter version: %s", versionString())
		log.Infof("Host: [%s]", host)
		log.Infof("Log file: [%s]", logFile)
		log.Infof("Log format: [%s]", logFormat)
		log.Infof("Log level: [%s]", logLevel)
		log.Infof("Max connections: [%d]", maxConnections)
		log.Infof("Metrics is on: [%t]", metrics)
		log.Infof("Metrics per counter is on: [%t]", metricsCounters)
		log.Infof("Port: [%d]", port)
		log.Infof("Port for profile: [%d]", portProfile)
		log.Infof("Profiling is on: [%t]", profile)
		log.Infof("Shutdown timeout: [%s]", shutdownTimeout)
		log.Infof("URL: [%s]", URL)

		// Optionally start the profiling server
		if profile {
			go func() {
				url := "localhost:" + strconv.Itoa(portProfile)
				err := http.ListenAndServe(url, nil)
				if err != nil {
					log.Error(err.Error())
				}
			}()
		}

		var wg sync.WaitGroup

		closed := make(chan struct{})

		c := make(chan os.Signal, 1)

		signal.Notify(c, os.Interrupt)

		go func() {
			<-c
			close(closed)
		}()

		config := api.Config{
			Host:            host,
			MaxConnections:  maxConnections,
			Metrics:         metrics,
			MetricsCounters: metricsCounters,
			Port:            port,
			ShutdownTimeout: shutdownTimeout,
			Store:           counter.New(),
			URL:             URL,
		}

		wg.Add(1)

		err = api.Serve(closed, &wg, config)

		wg.Wait()

		if err != nil {
			log.WithField("error", err.Error()).Error("server stopped")
			fmt.Println(err)
			os.Exit(1)
		}

		log.Trace("hitcounter done")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
