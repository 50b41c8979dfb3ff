package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/validate"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

var priceHistoryCmd = requireCatalog(&cobra.Command{
	Use:     "price-history",
	Aliases: []string{"prices"},
	Short:   "Manage the recorded price history of a product",
	Long: `Manage the dated price points recorded for a product.

Examples:
  twcadmin price-history list 1001
  twcadmin price-history add 1001 --price 79.90 --source promo
  twcadmin price-history delete 1001 5
  twcadmin price-history clear 1001 --yes`,
})

var priceHistoryListCmd = &cobra.Command{
	Use:   "list <product-id>",
	Short: "List a product's price history",
	Args:  cobra.ExactArgs(1),
	RunE:  runPriceHistoryList,
}

var priceFlags validate.PriceForm

var priceHistoryAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Record a price",
	Args:  cobra.ExactArgs(1),
	RunE:  runPriceHistoryAdd,
}

var priceHistoryDeleteCmd = &cobra.Command{
	Use:   "delete <product-id> <entry-id>",
	Short: "Remove one entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runPriceHistoryDelete,
}

var priceHistoryClearYes bool

var priceHistoryClearCmd = &cobra.Command{
	Use:   "clear <product-id>",
	Short: "Remove every entry of a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runPriceHistoryClear,
}

func init() {
	f := priceHistoryAddCmd.Flags()
	f.Float64Var(&priceFlags.Price, "price", 0, "price (required)")
	f.StringVar(&priceFlags.Date, "date", "", "date as YYYY-MM-DD (default today)")
	f.StringVar(&priceFlags.Source, "source", "", "where the price came from")

	priceHistoryClearCmd.Flags().BoolVarP(&priceHistoryClearYes, "yes", "y", false, "do not ask for confirmation")

	priceHistoryCmd.AddCommand(priceHistoryListCmd, priceHistoryAddCmd, priceHistoryDeleteCmd, priceHistoryClearCmd)
	rootCmd.AddCommand(priceHistoryCmd)
}

func priceTable(entries []wpapi.PriceEntry) ux.Table {
	t := ux.Table{Head: []string{"ID", "DATE", "PRICE", "SOURCE"}}
	for _, e := range entries {
		t.Body = append(t.Body, []string{itoa(e.ID), e.Date, strconv.FormatFloat(e.Price, 'f', 2, 64), orDash(e.Source)})
	}
	return t
}

func runPriceHistoryList(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	productID, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	entries, err := app.API.PriceHistory(cmd.Context(), productID)
	if err != nil {
		return err
	}
	if len(entries) == 0 && app.textOutput() {
		fmt.Fprintf(app.Out, "No prices recorded for product #%d.\n", productID)
		return nil
	}
	return app.print(entries, priceTable(entries))
}

func runPriceHistoryAdd(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	productID, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	form := priceFlags
	if form.Date == "" {
		form.Date = time.Now().Format(time.DateOnly)
	}
	if err := form.Validate(); err != nil {
		return err
	}
	e, err := app.API.AddPriceEntry(cmd.Context(), productID, form.Entry())
	if err != nil {
		return err
	}
	return app.done(e, fmt.Sprintf("Recorded %.2f on %s for product #%d.", e.Price, e.Date, productID))
}

func runPriceHistoryDelete(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	productID, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	entryID, err := parseID(args[1], "price entry")
	if err != nil {
		return err
	}
	if err := app.API.DeletePriceEntry(cmd.Context(), productID, entryID); err != nil {
		return err
	}
	return app.done(map[string]any{"product_id": productID, "id": entryID, "deleted": true},
		fmt.Sprintf("Deleted price entry #%d of product #%d.", entryID, productID))
}

func runPriceHistoryClear(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	productID, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	ok, err := confirm(app, priceHistoryClearYes, fmt.Sprintf("Remove the whole price history of product #%d?", productID))
	if err != nil {
		return err
	}
	if !ok {
		return cancelled(app)
	}
	if err := app.API.ClearPriceHistory(cmd.Context(), productID); err != nil {
		return err
	}
	return app.done(map[string]any{"product_id": productID, "cleared": true},
		fmt.Sprintf("Cleared the price history of product #%d.", productID))
}
