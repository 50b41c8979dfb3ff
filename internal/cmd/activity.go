package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

var activityCmd = requireCatalog(&cobra.Command{
	Use:   "activity",
	Short: "Read the store's activity log",
})

var activityListOpts listOptions

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activity, newest first",
	Args:  cobra.NoArgs,
	RunE:  runActivityList,
}

var activityGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one event with its context",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityGet,
}

var activityNewCmd = &cobra.Command{
	Use:   "new <since-id>",
	Short: "Count events logged after an event id",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityNew,
}

var activitySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show activity statistics",
	Args:  cobra.NoArgs,
	RunE:  runActivitySummary,
}

func init() {
	addListFlags(activityListCmd, &activityListOpts)

	activityCmd.AddCommand(activityListCmd, activityGetCmd, activityNewCmd, activitySummaryCmd)
	rootCmd.AddCommand(activityCmd)
}

func eventTable(events []wpapi.Event) ux.Table {
	t := ux.Table{Head: []string{"ID", "WHEN", "LEVEL", "BY", "MESSAGE"}}
	for _, e := range events {
		t.Body = append(t.Body, []string{itoa(e.ID), eventWhen(e.Date), e.Level, orDash(e.Initiator), firstLine(e.Message)})
	}
	return t
}

// eventWhen renders RFC 3339 and WordPress "2006-01-02 15:04:05" dates relative to now.
func eventWhen(date string) string {
	for _, layout := range []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, date); err == nil {
			return humanize.Time(t)
		}
	}
	return orDash(date)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func runActivityList(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	p := activityListOpts.params(app)
	page, err := app.API.ListEvents(cmd.Context(), p)
	if err != nil {
		return err
	}
	if err := app.print(page.Items, eventTable(page.Items)); err != nil {
		return err
	}
	pageFooter(app, p.Page, page.TotalPages, page.Total)
	return nil
}

func runActivityGet(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "event")
	if err != nil {
		return err
	}
	e, err := app.API.GetEvent(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !app.textOutput() {
		return app.print(e, nil)
	}
	if err := app.print(nil, eventTable([]wpapi.Event{*e})); err != nil {
		return err
	}
	if len(e.Context) > 0 {
		fmt.Fprintf(app.Out, "\n%s\n", e.Context)
	}
	return nil
}

func runActivityNew(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	since, err := parseID(args[0], "event")
	if err != nil {
		return err
	}
	n, err := app.API.NewEventCount(cmd.Context(), since)
	if err != nil {
		return err
	}
	return app.done(map[string]int{"since_id": since, "new_events": n},
		fmt.Sprintf("%s new %s since #%d.", humanize.Comma(int64(n)), plural(n, "event", "events"), since))
}

func runActivitySummary(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	summary, err := app.API.EventSummary(cmd.Context())
	if err != nil {
		return err
	}
	return app.print(summary, nil)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
