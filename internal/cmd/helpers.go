package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/reorder"
	"github.com/felixgeelhaar/twcadmin/internal/tui"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// listOptions are the paging flags shared by list commands.
type listOptions struct {
	page    int
	perPage int
	search  string
	orderBy string
	order   string
}

func addListFlags(cmd *cobra.Command, o *listOptions) {
	cmd.Flags().IntVar(&o.page, "page", 1, "page to show")
	cmd.Flags().IntVar(&o.perPage, "per-page", 0, "items per page (default from output.per_page)")
	cmd.Flags().StringVarP(&o.search, "search", "s", "", "filter by text")
	cmd.Flags().StringVar(&o.orderBy, "orderby", "", "sort field")
	cmd.Flags().StringVar(&o.order, "order", "", "sort direction: asc or desc")
}

func (o listOptions) params(app *App) wpapi.ListParams {
	perPage := o.perPage
	if perPage <= 0 {
		perPage = app.Config.Output.PerPage
	}
	return wpapi.ListParams{
		Page:    o.page,
		PerPage: min(perPage, wpapi.MaxPerPage),
		Search:  o.search,
		OrderBy: o.orderBy,
		Order:   o.order,
	}
}

// pageFooter describes which slice of a collection is shown.
func pageFooter(app *App, page, totalPages, total int) {
	if !app.textOutput() || totalPages <= 1 {
		return
	}
	fmt.Fprintf(app.Out, "Page %d of %d (%s total)\n", max(page, 1), totalPages, humanize.Comma(int64(total)))
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || id <= 0 {
		return 0, usageError(fmt.Sprintf("invalid %s id %q", what, arg), "Ids are positive whole numbers; list them with the matching 'list' command")
	}
	return id, nil
}

func parsePosition(arg string) (int, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil || pos < 1 {
		return 0, errors.New(errors.ErrCodeReorderIndex, fmt.Sprintf("invalid position %q", arg)).
			WithSuggestion("Positions start at 1")
	}
	return pos, nil
}

// confirm asks before a destructive action. --yes skips the question.
// Without a terminal the answer is read as a line from stdin; no answer is no.
func confirm(app *App, yes bool, message string) (bool, error) {
	if yes {
		return true, nil
	}
	if tui.ShouldPrompt() {
		return tui.PromptForConfirmation(message, false)
	}
	return ux.NewLinePrompter(app.In, app.Err).Confirm(message, false), nil
}

func cancelled(app *App) error {
	fmt.Fprintln(app.Err, "Cancelled.")
	return nil
}

func newEditor[T reorder.Item](app *App, name string, c reorder.Collection[T]) *reorder.Editor[T] {
	return reorder.NewEditor(name, c,
		reorder.WithLogger(app.Logger),
		reorder.WithMetrics(app.Metrics),
	)
}

// moveItem moves id to position and prints the resulting order.
func moveItem[T reorder.Item](cmd *cobra.Command, app *App, editor *reorder.Editor[T], id, position int, table func([]T) ux.Table) error {
	ctx := cmd.Context()
	if err := editor.Load(ctx); err != nil {
		return err
	}
	if err := editor.MoveID(ctx, id, position); err != nil {
		if errors.HasCode(err, errors.ErrCodeReorderConflict) && app.textOutput() {
			fmt.Fprintln(app.Err, "The move was not saved. Current order:")
			_ = app.print(nil, table(editor.Items()))
		}
		return err
	}
	return app.print(editor.Items(), table(editor.Items()))
}

// runReorder opens the interactive reorder view over editor.
func runReorder[T reorder.Item](cmd *cobra.Command, app *App, editor *reorder.Editor[T], label func(T) string) error {
	if !tui.ShouldPrompt() {
		return usageError("reorder needs an interactive terminal",
			fmt.Sprintf("Use '%s move <id> <position>' in scripts", strings.TrimSuffix(cmd.CommandPath(), " reorder")))
	}
	ctx := cmd.Context()
	if err := editor.Load(ctx); err != nil {
		return err
	}
	styles := tui.DefaultStyles()
	if app.Config.Output.NoColor {
		styles = tui.PlainStyles()
	}
	return tui.RunReorder(ctx, editor, label, styles)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
