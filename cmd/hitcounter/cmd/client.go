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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/practable/hitcounter/pkg/client"
	"github.com/spf13/cobra"
)

// clientSpecification is read from HITCOUNTER_CLIENT_* environment variables
type clientSpecification struct {
	URL     string        `default:"http://localhost:8080"`
	Timeout time.Duration `default:"10s"`
	Retries int           `default:"3"`
}

func newClient() (*client.Client, clientSpecification) {

	var spec clientSpecification

	err := envconfig.Process("hitcounter_client", &spec)
	if err != nil {
		fmt.Println(err)
		envconfig.Usage("hitcounter_client", &spec)
		os.Exit(1)
	}

	c := client.New(spec.URL,
		client.WithTimeout(spec.Timeout),
		client.WithRetries(spec.Retries))

	return c, spec
}

func printJSON(v interface{}) {
	pretty, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		fmt.Printf("Error: could not format response because %s\n", err.Error())
		os.Exit(1)
	}
	fmt.Println(string(pretty))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Make requests to a counter server",
	Long: `Set server details with environment variables.
For example:

export HITCOUNTER_CLIENT_URL=http://localhost:8080
export HITCOUNTER_CLIENT_TIMEOUT=10s
export HITCOUNTER_CLIENT_RETRIES=3
hitcounter client create hits
hitcounter client increment hits
hitcounter client list
`,
}

var clientCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a counter, starting at zero",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, _ := newClient()
		ct, err := c.Create(context.Background(), args[0])
		exitOnError(err)
		printJSON(ct)
	},
}

var clientGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Read the value of a counter",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, _ := newClient()
		v, err := c.Read(context.Background(), args[0])
		exitOnError(err)
		printJSON(client.Counter{Name: args[0], Value: v})
	},
}

var clientIncrementCmd = &cobra.Command{
	Use:   "increment <name>",
	Short: "Add one to a counter",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, _ := newClient()
		v, err := c.Increment(context.Background(), args[0])
		exitOnError(err)
		printJSON(client.Counter{Name: args[0], Value: v})
	},
}

var clientDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a counter (succeeds even if it does not exist)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, _ := newClient()
		exitOnError(c.Delete(context.Background(), args[0]))
	},
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all counters",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		c, _ := newClient()
		counters, err := c.List(context.Background())
		exitOnError(err)
		printJSON(counters)
	},
}

var clientHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the server is up",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		c, spec := newClient()
		exitOnError(c.Health(context.Background()))
		fmt.Printf("%s OK\n", spec.URL)
	},
}

func init() {
	clientCmd.AddCommand(clientCreateCmd)
	clientCmd.AddCommand(clientGetCmd)
	clientCmd.AddCommand(clientIncrementCmd)
	clientCmd.AddCommand(clientDeleteCmd)
	clientCmd.AddCommand(clientListCmd)
	clientCmd.AddCommand(clientHealthCmd)
	rootCmd.AddCommand(clientCmd)
}
