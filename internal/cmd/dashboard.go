package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/dashboard"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
)

var dashboardCmd = requireCatalog(&cobra.Command{
	Use:   "dashboard",
	Short: "Show catalog totals, recent products and top brands and categories",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
})

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func rankedTable(title string, ranked []dashboard.Ranked) ux.Table {
	t := ux.Table{Head: []string{title, "PRODUCTS"}}
	for _, r := range ranked {
		t.Body = append(t.Body, []string{r.Name, humanize.Comma(int64(r.Count))})
	}
	return t
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	s, err := dashboard.Load(cmd.Context(), app.API)
	if err != nil {
		return err
	}
	if !app.textOutput() {
		return app.print(s, nil)
	}

	n := func(v int) string { return humanize.Comma(int64(v)) }
	totals := ux.Table{
		Head: []string{"PRODUCTS", "PUBLISHED", "DRAFTS", "IN STOCK", "OUT OF STOCK", "BRANDS", "CATEGORIES"},
		Body: [][]string{{
			n(s.Totals.Products), n(s.Totals.Published), n(s.Totals.Drafts),
			n(s.Totals.InStock), n(s.Totals.OutOfStock), n(s.Totals.Brands), n(s.Totals.Categories),
		}},
	}

	var b strings.Builder
	section := func(title string, t ux.Table) {
		fmt.Fprintf(&b, "%s\n%s\n\n", title, ux.RenderTable(t.Head, t.Body, app.Config.Output.NoColor))
	}
	section("Catalog", totals)
	if len(s.Recent) > 0 {
		section("Recently added", productTable(s.Recent))
	}
	if len(s.TopBrands) > 0 {
		section("Top brands", rankedTable("BRAND", s.TopBrands))
	}
	if len(s.TopCategories) > 0 {
		section("Top categories", rankedTable("CATEGORY", s.TopCategories))
	}
	_, err = fmt.Fprint(app.Out, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}
