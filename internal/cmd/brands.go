package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/validate"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

var brandsCmd = requireCatalog(&cobra.Command{
	Use:     "brands",
	Aliases: []string{"brand"},
	Short:   "Manage product brands and their display order",
	Long: `Manage product brands.

Brands are shown on the storefront in their menu order. 'move' changes one
brand's position and renumbers every brand 1..N in a single batch; 'reorder'
does the same interactively. Creating or updating a brand with --position
shifts the brands at and after that position down by one first.

Examples:
  twcadmin brands list
  twcadmin brands create --name "Acme" --position 1
  twcadmin brands move 42 3
  twcadmin brands reorder`,
})

var brandsListOpts listOptions

var brandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List brands in display order",
	Args:  cobra.NoArgs,
	RunE:  runBrandsList,
}

var brandsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one brand",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrandsGet,
}

var brandForm struct {
	name        string
	slug        string
	description string
	imageID     int
	position    int
}

var brandsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a brand",
	Args:  cobra.NoArgs,
	RunE:  runBrandsCreate,
}

var brandsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a brand; only the given flags change",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrandsUpdate,
}

var brandsDeleteYes bool

var brandsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a brand permanently",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrandsDelete,
}

var brandsProductsOpts listOptions

var brandsProductsCmd = &cobra.Command{
	Use:   "products <id>",
	Short: "List the products of a brand",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrandsProducts,
}

var brandsMoveCmd = &cobra.Command{
	Use:   "move <id> <position>",
	Short: "Move a brand to a 1-based position",
	Args:  cobra.ExactArgs(2),
	RunE:  runBrandsMove,
}

var brandsReorderCmd = &cobra.Command{
	Use:   "reorder",
	Short: "Reorder brands interactively",
	Args:  cobra.NoArgs,
	RunE:  runBrandsReorder,
}

func init() {
	addListFlags(brandsListCmd, &brandsListOpts)
	addListFlags(brandsProductsCmd, &brandsProductsOpts)

	for _, c := range []*cobra.Command{brandsCreateCmd, brandsUpdateCmd} {
		c.Flags().StringVar(&brandForm.name, "name", "", "brand name")
		c.Flags().StringVar(&brandForm.slug, "slug", "", "URL slug (lowercase letters, digits and dashes)")
		c.Flags().StringVar(&brandForm.description, "description", "", "description")
		c.Flags().IntVar(&brandForm.imageID, "image-id", 0, "media id of the brand image")
		c.Flags().IntVar(&brandForm.position, "position", 0, "1-based display position")
	}
	brandsDeleteCmd.Flags().BoolVarP(&brandsDeleteYes, "yes", "y", false, "do not ask for confirmation")

	brandsCmd.AddCommand(brandsListCmd, brandsGetCmd, brandsCreateCmd, brandsUpdateCmd,
		brandsDeleteCmd, brandsProductsCmd, brandsMoveCmd, brandsReorderCmd)
	rootCmd.AddCommand(brandsCmd)
}

func brandTable(brands []wpapi.Brand) ux.Table {
	t := ux.Table{Head: []string{"POS", "ID", "NAME", "SLUG", "PRODUCTS"}}
	for _, b := range brands {
		t.Body = append(t.Body, []string{itoa(b.MenuOrder), itoa(b.ID), b.Name, b.Slug, itoa(b.Count)})
	}
	return t
}

func brandLabel(b wpapi.Brand) string {
	return fmt.Sprintf("%s (#%d, %d products)", b.Name, b.ID, b.Count)
}

func runBrandsList(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	p := brandsListOpts.params(app)
	if p.OrderBy == "" {
		p.OrderBy, p.Order = "menu_order", "asc"
	}

	page, err := app.API.ListBrands(cmd.Context(), p)
	if err != nil {
		return err
	}
	if err := app.print(page.Items, brandTable(page.Items)); err != nil {
		return err
	}
	pageFooter(app, p.Page, page.TotalPages, page.Total)
	return nil
}

func runBrandsGet(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "brand")
	if err != nil {
		return err
	}
	b, err := app.API.GetBrand(cmd.Context(), id)
	if err != nil {
		return err
	}
	return app.print(b, brandTable([]wpapi.Brand{*b}))
}

// brandFormFrom builds the form from the flags the user set.
func brandFormFrom(cmd *cobra.Command, partial bool) validate.BrandForm {
	f := validate.BrandForm{
		Partial:     partial,
		Name:        brandForm.name,
		Slug:        brandForm.slug,
		Description: brandForm.description,
		ImageID:     brandForm.imageID,
	}
	if cmd.Flags().Changed("position") {
		pos := brandForm.position
		f.MenuOrder = &pos
	}
	return f
}

// saveBrand validates form and runs save, shifting other brands first when a
// position is requested.
func saveBrand(cmd *cobra.Command, app *App, form validate.BrandForm, excludeID int, save func(ctx context.Context, in wpapi.BrandInput) error) error {
	if err := form.Validate(); err != nil {
		return err
	}
	in := form.Input()
	if form.MenuOrder == nil {
		return save(cmd.Context(), in)
	}
	editor := newEditor[wpapi.Brand](app, "brand", app.API.Brands())
	return editor.SaveWithKey(cmd.Context(), *form.MenuOrder, excludeID, func(ctx context.Context) error {
		return save(ctx, in)
	})
}

func runBrandsCreate(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)

	var created *wpapi.Brand
	err := saveBrand(cmd, app, brandFormFrom(cmd, false), 0, func(ctx context.Context, in wpapi.BrandInput) error {
		var err error
		created, err = app.API.CreateBrand(ctx, in)
		return err
	})
	if err != nil {
		return err
	}
	return app.done(created, fmt.Sprintf("Created brand %q (#%d).", created.Name, created.ID))
}

func runBrandsUpdate(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "brand")
	if err != nil {
		return err
	}

	var updated *wpapi.Brand
	err = saveBrand(cmd, app, brandFormFrom(cmd, true), id, func(ctx context.Context, in wpapi.BrandInput) error {
		var err error
		updated, err = app.API.UpdateBrand(ctx, id, in)
		return err
	})
	if err != nil {
		return err
	}
	return app.done(updated, fmt.Sprintf("Updated brand %q (#%d).", updated.Name, updated.ID))
}

func runBrandsDelete(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "brand")
	if err != nil {
		return err
	}
	ok, err := confirm(app, brandsDeleteYes, fmt.Sprintf("Delete brand #%d? Products keep existing but lose the brand.", id))
	if err != nil {
		return err
	}
	if !ok {
		return cancelled(app)
	}
	if err := app.API.DeleteBrand(cmd.Context(), id); err != nil {
		return err
	}
	return app.done(map[string]any{"id": id, "deleted": true}, fmt.Sprintf("Deleted brand #%d.", id))
}

func runBrandsProducts(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "brand")
	if err != nil {
		return err
	}
	p := brandsProductsOpts.params(app)
	page, err := app.API.ListProducts(cmd.Context(), wpapi.ProductListParams{ListParams: p, Brands: []int{id}})
	if err != nil {
		return err
	}
	if err := app.print(page.Items, productTable(page.Items)); err != nil {
		return err
	}
	pageFooter(app, p.Page, page.TotalPages, page.Total)
	return nil
}

func runBrandsMove(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "brand")
	if err != nil {
		return err
	}
	position, err := parsePosition(args[1])
	if err != nil {
		return err
	}
	return moveItem(cmd, app, newEditor[wpapi.Brand](app, "brand", app.API.Brands()), id, position, brandTable)
}

func runBrandsReorder(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	return runReorder(cmd, app, newEditor[wpapi.Brand](app, "brand", app.API.Brands()), brandLabel)
}
