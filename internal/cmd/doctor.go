package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/guard"
	"github.com/felixgeelhaar/twcadmin/internal/health"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
)

var doctorCmd = guard.Public(&cobra.Command{
	Use:   "doctor",
	Short: "Check the store connection and the stored session",
	Long: `Run health checks against the configured store:

  store        the REST API index is reachable and serves jwt-auth/v1, wp/v2 and wc/v3
  credentials  the credential file is readable; shows when the token expires
  session      the store accepts the stored token

The command fails when any check is unhealthy. Degraded checks, such as not
being signed in, are reported but do not fail it.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
})

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorReport is the output of doctor.
type doctorReport struct {
	Store  string          `json:"store" yaml:"store"`
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

func (r doctorReport) Headers() []string { return []string{"CHECK", "STATUS", "DETAIL"} }

func (r doctorReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		rows = append(rows, []string{c.Name, c.Status.String(), c.Message})
	}
	return rows
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)

	m := health.NewManager().WithTimeout(app.Config.API.Timeout)
	m.AddChecker(health.NewStoreChecker(app.API))
	m.AddChecker(health.NewCredentialsChecker(app.Store))
	m.AddChecker(health.NewSessionChecker(app.Store, app.Session))

	reports := m.Check(cmd.Context())
	report := doctorReport{
		Store:  app.Gateway.BaseURL(),
		Status: health.Overall(reports),
		Checks: reports,
	}
	for _, r := range reports {
		app.Metrics.ObserveHealth(r.Name, r.Status.String())
	}

	if err := app.print(report, report); err != nil {
		return err
	}
	if app.textOutput() {
		fmt.Fprintf(app.Out, "%s: %s\n", report.Store, report.Status)
	}
	if report.Status == health.StatusUnhealthy {
		return errors.New(errors.ErrCodeRemote, "one or more health checks failed").
			WithSuggestion("Run 'twcadmin config view' to check api.base_url")
	}
	return nil
}

var _ ux.Tabular = doctorReport{}
