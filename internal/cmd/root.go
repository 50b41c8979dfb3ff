// Package cmd implements the twcadmin command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/guard"
)

var (
	cfgFile     string
	apiURL      string
	format      string
	logLevel    string
	noColor     bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "twcadmin",
	Short: "Administer a WooCommerce catalog from the terminal",
	Long: `twcadmin signs in to a WordPress/WooCommerce store and manages its catalog:
brands, products, homepage highlights, media, users, price history and the
activity log.

Sessions are persisted between runs. Commands that need a session check your
roles before anything is sent; run 'twcadmin auth login' to sign in.

Brand and homepage order can be changed one move at a time or interactively
with 'reorder', which saves after every drop.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and releases what setup acquired. The error
// is returned unrendered; main decides how to print it.
func Execute(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if app := appFrom(cmd); app != nil {
		app.close(err)
	}
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.twcadmin/config.yaml)")
	flags.StringVar(&apiURL, "api-url", "", "store base URL, e.g. https://shop.example.com")
	flags.StringVarP(&format, "format", "o", "text", "output format: text, json, yaml")
	flags.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
}

// setup builds the App for cmd, then admits or rejects cmd against its
// declared requirements.
func setup(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	cmd.SetContext(withApp(app.ctx, app))

	req, public := guard.RequirementsFor(cmd)
	if public {
		return nil
	}

	ctx := cmd.Context()
	app.Session.Bootstrap(ctx)

	location := guard.Location(cmd)
	decision := app.Guard.Check(ctx, req, location)
	if err := decision.Err(req, location); err != nil {
		app.Logger.DebugContext(ctx, "command rejected",
			"location", location,
			"outcome", decision.Outcome.String(),
		)
		return err
	}
	return nil
}

// catalogRoles may manage the catalog.
var catalogRoles = []string{"administrator", "shop_manager"}

func requireCatalog(cmd *cobra.Command) *cobra.Command {
	return guard.Protect(cmd, guard.Requirements{RequireRoles: catalogRoles})
}

func requireAdmin(cmd *cobra.Command) *cobra.Command {
	return guard.Protect(cmd, guard.Requirements{RequireAdmin: true})
}

func usageError(msg string, suggestions ...string) error {
	return errors.New(errors.ErrCodeValidation, msg).WithSuggestions(suggestions...)
}
