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
	"os"
	"os/signal"

	"github.com/practable/hitcounter/internal/bench"
	"github.com/spf13/cobra"
)

var benchIncrements, benchWorkers int
var benchName string
var benchJSON bool

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Increment a counter concurrently and check no updates are lost",
	Long: `Bench creates a counter (or carries on from an existing one), has each
worker increment it the given number of times, then reads it back. It exits
non-zero if the final value does not match the number of successful increments.
The server is set with the same environment variables as the client command,
for example:

export HITCOUNTER_CLIENT_URL=http://localhost:8080
hitcounter bench --workers 32 --increments 1000
`,
	Run: func(cmd *cobra.Command, args []string) {

		c, _ := newClient()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		report, err := bench.Run(ctx, c, bench.Config{
			Name:       benchName,
			Workers:    benchWorkers,
			Increments: benchIncrements,
		})

		exitOnError(err)

		if benchJSON {
			printJSON(report)
		} else {
			fmt.Println(report.String())
		}

		if !report.OK() {
			os.Exit(2)
		}
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 16, "number of concurrent workers")
	benchCmd.Flags().IntVar(&benchIncrements, "increments", 100, "increments per worker")
	benchCmd.Flags().StringVar(&benchName, "name", "bench", "name of the counter to increment")
	benchCmd.Flags().BoolVar(&benchJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(benchCmd)
}
