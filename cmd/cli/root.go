package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bobinette/papershelf/app"
	"github.com/bobinette/papershelf/bolt"
	"github.com/bobinette/papershelf/clients"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/log"
)

var (
	// flags
	environment string
	configFile  string

	// configuration
	config Configuration

	// logger
	logger log.Logger
)

func init() {
	RootCmd.PersistentFlags().StringVar(&environment, "env", "dev", "environment")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
}

var RootCmd = cobra.Command{
	Use:   "papershelf",
	Short: "Discover papers and keep your bookmarks in sync",
	Long:  "Discover papers and keep your bookmarks in sync",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = log.New(environment)

		if configFile == "" {
			configFile = path.Join("configuration", fmt.Sprintf("config.%s.toml", environment))
		}

		var err error
		config, err = loadConfiguration(configFile)
		if err != nil {
			logger.Fatal("could not load configuration: ", err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// withApp opens the session store and builds the application around it
// before running f. The store is closed when f returns.
func withApp(f func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := os.MkdirAll(filepath.Dir(config.Session.Store), 0700); err != nil {
			logger.Fatal("could not create session store directory: ", err)
		}

		driver := bolt.Driver{}
		if err := driver.Open(config.Session.Store); err != nil {
			logger.Fatal("could not open session store: ", err)
		}
		defer driver.Close()

		httpClient := &http.Client{Timeout: config.API.Timeout}
		client, err := clients.NewClient(httpClient, config.API.URL, logger.WithField("component", "client"))
		if err != nil {
			logger.Fatal("invalid api url: ", err)
		}

		a, err := app.New(client, &bolt.SessionStore{Driver: &driver}, logger, config.API.PerPage)
		if err != nil {
			logger.Fatal(err)
		}
		defer a.Close()

		if err := f(context.Background(), cmd, a, args); err != nil {
			// Fatal would skip the deferred closes
			logger.Error(describe(err))
			driver.Close()
			a.Close()
			os.Exit(1)
		}
	}
}

// describe renders err for the terminal.
func describe(err error) string {
	kind := errors.KindOf(err)
	if kind == errors.Unknown {
		return errors.Message(err)
	}
	return fmt.Sprintf("%s: %s", kind, errors.Message(err))
}
