package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/validate"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

var productsCmd = requireCatalog(&cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Manage products",
	Long: `Manage WooCommerce products.

Examples:
  twcadmin products list --status publish --stock-status outofstock
  twcadmin products create --name "Trail Shoe" --regular-price 89.90 --brand 42
  twcadmin products update 1001 --sale-price 79.90
  twcadmin products delete 1001 --force`,
})

var productsListOpts struct {
	listOptions
	status      string
	stockStatus string
	brands      []int
	category    int
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Args:  cobra.NoArgs,
	RunE:  runProductsList,
}

var productsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsGet,
}

var productForm struct {
	name             string
	sku              string
	regularPrice     string
	salePrice        string
	status           string
	stockStatus      string
	stockQuantity    int
	description      string
	shortDescription string
	brands           []int
	categories       []int
	tags             []int
	images           []int
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a simple product",
	Args:  cobra.NoArgs,
	RunE:  runProductsCreate,
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a product; only the given flags change",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsUpdate,
}

var productsDeleteOpts struct {
	force bool
	yes   bool
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Move a product to the trash, or delete it with --force",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsDelete,
}

var termsListOpts listOptions

var productsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List product categories",
	Args:  cobra.NoArgs,
	RunE:  runProductsCategories,
}

var productsTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List product tags",
	Args:  cobra.NoArgs,
	RunE:  runProductsTags,
}

func init() {
	addListFlags(productsListCmd, &productsListOpts.listOptions)
	productsListCmd.Flags().StringVar(&productsListOpts.status, "status", "", "filter by status: draft, pending, private, publish")
	productsListCmd.Flags().StringVar(&productsListOpts.stockStatus, "stock-status", "", "filter by stock: instock, outofstock, onbackorder")
	productsListCmd.Flags().IntSliceVar(&productsListOpts.brands, "brand", nil, "filter by brand ids")
	productsListCmd.Flags().IntVar(&productsListOpts.category, "category", 0, "filter by category id")

	for _, c := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		f := c.Flags()
		f.StringVar(&productForm.name, "name", "", "product name")
		f.StringVar(&productForm.sku, "sku", "", "stock keeping unit")
		f.StringVar(&productForm.regularPrice, "regular-price", "", "regular price, e.g. 19.90")
		f.StringVar(&productForm.salePrice, "sale-price", "", "sale price; empty removes the sale")
		f.StringVar(&productForm.status, "status", "", "draft, pending, private or publish")
		f.StringVar(&productForm.stockStatus, "stock-status", "", "instock, outofstock or onbackorder")
		f.IntVar(&productForm.stockQuantity, "stock-quantity", 0, "units in stock; enables stock management")
		f.StringVar(&productForm.description, "description", "", "description (HTML allowed)")
		f.StringVar(&productForm.shortDescription, "short-description", "", "short description")
		f.IntSliceVar(&productForm.brands, "brand", nil, "brand ids")
		f.IntSliceVar(&productForm.categories, "category", nil, "category ids")
		f.IntSliceVar(&productForm.tags, "tag", nil, "tag ids")
		f.IntSliceVar(&productForm.images, "image", nil, "media ids; the first is the main image")
	}

	productsDeleteCmd.Flags().BoolVar(&productsDeleteOpts.force, "force", false, "delete permanently instead of trashing")
	productsDeleteCmd.Flags().BoolVarP(&productsDeleteOpts.yes, "yes", "y", false, "do not ask for confirmation")

	addListFlags(productsCategoriesCmd, &termsListOpts)
	addListFlags(productsTagsCmd, &termsListOpts)

	productsCmd.AddCommand(productsListCmd, productsGetCmd, productsCreateCmd, productsUpdateCmd,
		productsDeleteCmd, productsCategoriesCmd, productsTagsCmd)
	rootCmd.AddCommand(productsCmd)
}

func productTable(products []wpapi.Product) ux.Table {
	t := ux.Table{Head: []string{"ID", "NAME", "SKU", "PRICE", "STATUS", "STOCK", "BRANDS"}}
	for _, p := range products {
		t.Body = append(t.Body, []string{
			itoa(p.ID), p.Name, orDash(p.SKU), productPrice(p), p.Status, productStock(p), termNames(p.Brands),
		})
	}
	return t
}

func productPrice(p wpapi.Product) string {
	switch {
	case p.OnSale && p.SalePrice != "":
		return p.SalePrice + " (was " + p.RegularPrice + ")"
	case p.Price != "":
		return p.Price
	default:
		return orDash(p.RegularPrice)
	}
}

func productStock(p wpapi.Product) string {
	if p.StockQuantity != nil {
		return fmt.Sprintf("%s (%d)", p.StockStatus, *p.StockQuantity)
	}
	return orDash(p.StockStatus)
}

func termNames(refs []wpapi.TermRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Name != "" {
			names = append(names, r.Name)
		} else {
			names = append(names, "#"+itoa(r.ID))
		}
	}
	return orDash(strings.Join(names, ", "))
}

func termTable(terms []wpapi.Term) ux.Table {
	t := ux.Table{Head: []string{"ID", "NAME", "SLUG", "PRODUCTS"}}
	for _, term := range terms {
		t.Body = append(t.Body, []string{itoa(term.ID), term.Name, term.Slug, itoa(term.Count)})
	}
	return t
}

func runProductsList(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	o := productsListOpts
	p := wpapi.ProductListParams{
		ListParams:  o.params(app),
		Status:      o.status,
		StockStatus: o.stockStatus,
		Brands:      o.brands,
		Category:    o.category,
	}

	page, err := app.API.ListProducts(cmd.Context(), p)
	if err != nil {
		return err
	}
	if err := app.print(page.Items, productTable(page.Items)); err != nil {
		return err
	}
	pageFooter(app, p.Page, page.TotalPages, page.Total)
	return nil
}

func runProductsGet(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	p, err := app.API.GetProduct(cmd.Context(), id)
	if err != nil {
		return err
	}
	return app.print(p, productTable([]wpapi.Product{*p}))
}

func productFormFrom(cmd *cobra.Command, partial bool) validate.ProductForm {
	f := validate.ProductForm{
		Partial:          partial,
		Name:             productForm.name,
		SKU:              productForm.sku,
		RegularPrice:     productForm.regularPrice,
		Status:           productForm.status,
		StockStatus:      productForm.stockStatus,
		Description:      productForm.description,
		ShortDescription: productForm.shortDescription,
		BrandIDs:         productForm.brands,
		CategoryIDs:      productForm.categories,
		TagIDs:           productForm.tags,
		ImageIDs:         productForm.images,
	}
	if cmd.Flags().Changed("sale-price") {
		sale := productForm.salePrice
		f.SalePrice = &sale
	}
	if cmd.Flags().Changed("stock-quantity") {
		qty := productForm.stockQuantity
		f.StockQuantity = &qty
	}
	return f
}

func runProductsCreate(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	form := productFormFrom(cmd, false)
	if err := form.Validate(); err != nil {
		return err
	}
	p, err := app.API.CreateProduct(cmd.Context(), form.Input())
	if err != nil {
		return err
	}
	return app.done(p, fmt.Sprintf("Created product %q (#%d).", p.Name, p.ID))
}

func runProductsUpdate(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	form := productFormFrom(cmd, true)
	if err := form.Validate(); err != nil {
		return err
	}
	p, err := app.API.UpdateProduct(cmd.Context(), id, form.Input())
	if err != nil {
		return err
	}
	return app.done(p, fmt.Sprintf("Updated product %q (#%d).", p.Name, p.ID))
}

func runProductsDelete(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	o := productsDeleteOpts
	question := fmt.Sprintf("Move product #%d to the trash?", id)
	if o.force {
		question = fmt.Sprintf("Delete product #%d permanently?", id)
	}
	ok, err := confirm(app, o.yes, question)
	if err != nil {
		return err
	}
	if !ok {
		return cancelled(app)
	}
	if err := app.API.DeleteProduct(cmd.Context(), id, o.force); err != nil {
		return err
	}
	verb := "Trashed"
	if o.force {
		verb = "Deleted"
	}
	return app.done(map[string]any{"id": id, "deleted": o.force, "trashed": !o.force}, fmt.Sprintf("%s product #%d.", verb, id))
}

func runProductsCategories(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	p := termsListOpts.params(app)
	page, err := app.API.ListCategories(cmd.Context(), p)
	if err != nil {
		return err
	}
	if err := app.print(page.Items, termTable(page.Items)); err != nil {
		return err
	}
	pageFooter(app, p.Page, page.TotalPages, page.Total)
	return nil
}

func runProductsTags(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	p := termsListOpts.params(app)
	page, err := app.API.ListTags(cmd.Context(), p)
	if err != nil {
		return err
	}
	if err := app.print(page.Items, termTable(page.Items)); err != nil {
		return err
	}
	pageFooter(app, p.Page, page.TotalPages, page.Total)
	return nil
}
