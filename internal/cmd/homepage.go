package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/reorder"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/validate"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

var homepageCmd = requireCatalog(&cobra.Command{
	Use:   "homepage",
	Short: "Manage the storefront homepage highlights",
	Long: `Manage the hero and collection highlights shown on the storefront homepage.

Each item links to a brand, a category or a custom URL and carries titles in
English and Indonesian. Items are shown in sort order; 'move' and 'reorder'
renumber every item 1..N in one batch.

Examples:
  twcadmin homepage list
  twcadmin homepage create --title-en "New in" --title-id "Baru" \
      --link-type brand --brand 42 --image-url https://cdn.example.com/hero.jpg
  twcadmin homepage move 7 1`,
})

var homepageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List homepage items in display order",
	Args:  cobra.NoArgs,
	RunE:  runHomepageList,
}

var homepageFlags struct {
	titleEn    string
	titleID    string
	subtitleEn string
	subtitleID string
	linkType   string
	brand      int
	category   int
	customURL  string
	imageURL   string
	status     string
	position   int
}

var homepageCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a homepage item",
	Args:  cobra.NoArgs,
	RunE:  runHomepageCreate,
}

var homepageUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a homepage item; only the given flags change",
	Args:  cobra.ExactArgs(1),
	RunE:  runHomepageUpdate,
}

var homepageDeleteYes bool

var homepageDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a homepage item",
	Args:  cobra.ExactArgs(1),
	RunE:  runHomepageDelete,
}

var homepageMoveCmd = &cobra.Command{
	Use:   "move <id> <position>",
	Short: "Move a homepage item to a 1-based position",
	Args:  cobra.ExactArgs(2),
	RunE:  runHomepageMove,
}

var homepageReorderCmd = &cobra.Command{
	Use:   "reorder",
	Short: "Reorder homepage items interactively",
	Args:  cobra.NoArgs,
	RunE:  runHomepageReorder,
}

func init() {
	for _, c := range []*cobra.Command{homepageCreateCmd, homepageUpdateCmd} {
		f := c.Flags()
		f.StringVar(&homepageFlags.titleEn, "title-en", "", "English title")
		f.StringVar(&homepageFlags.titleID, "title-id", "", "Indonesian title")
		f.StringVar(&homepageFlags.subtitleEn, "subtitle-en", "", "English subtitle")
		f.StringVar(&homepageFlags.subtitleID, "subtitle-id", "", "Indonesian subtitle")
		f.StringVar(&homepageFlags.linkType, "link-type", "", "brand, category or custom")
		f.IntVar(&homepageFlags.brand, "brand", 0, "linked brand id (link type brand)")
		f.IntVar(&homepageFlags.category, "category", 0, "linked category id (link type category)")
		f.StringVar(&homepageFlags.customURL, "url", "", "target URL (link type custom)")
		f.StringVar(&homepageFlags.imageURL, "image-url", "", "banner image URL")
		f.StringVar(&homepageFlags.status, "status", "", "enabled or disabled")
		f.IntVar(&homepageFlags.position, "position", 0, "1-based display position")
	}
	homepageDeleteCmd.Flags().BoolVarP(&homepageDeleteYes, "yes", "y", false, "do not ask for confirmation")

	homepageCmd.AddCommand(homepageListCmd, homepageCreateCmd, homepageUpdateCmd,
		homepageDeleteCmd, homepageMoveCmd, homepageReorderCmd)
	rootCmd.AddCommand(homepageCmd)
}

func homepageTable(items []wpapi.HomepageItem) ux.Table {
	t := ux.Table{Head: []string{"POS", "ID", "TITLE", "LINK", "STATUS"}}
	for _, h := range items {
		t.Body = append(t.Body, []string{itoa(h.SortOrder), itoa(h.ID), h.TitleEn, homepageLink(h), h.Status})
	}
	return t
}

func homepageLink(h wpapi.HomepageItem) string {
	switch h.LinkType {
	case wpapi.LinkBrand:
		return fmt.Sprintf("brand #%d", h.LinkedBrandID)
	case wpapi.LinkCategory:
		return fmt.Sprintf("category #%d", h.LinkedCategoryID)
	case wpapi.LinkCustom:
		return h.CustomURL
	default:
		return "-"
	}
}

func homepageLabel(h wpapi.HomepageItem) string {
	return fmt.Sprintf("%s (#%d, %s)", h.TitleEn, h.ID, homepageLink(h))
}

func runHomepageList(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	items, err := app.API.AllHomepageItems(cmd.Context())
	if err != nil {
		return err
	}
	items = reorder.Sorted(items)
	return app.print(items, homepageTable(items))
}

// homepageFormFrom overlays the flags the user set on base.
func homepageFormFrom(cmd *cobra.Command, base wpapi.HomepageItem) validate.HomepageForm {
	f := validate.HomepageForm{
		TitleEn:          base.TitleEn,
		TitleID:          base.TitleID,
		SubtitleEn:       base.SubtitleEn,
		SubtitleID:       base.SubtitleID,
		LinkType:         base.LinkType,
		LinkedBrandID:    base.LinkedBrandID,
		LinkedCategoryID: base.LinkedCategoryID,
		CustomURL:        base.CustomURL,
		ImageURL:         base.ImageURL,
		Status:           base.Status,
	}
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("title-en", &f.TitleEn, homepageFlags.titleEn)
	set("title-id", &f.TitleID, homepageFlags.titleID)
	set("subtitle-en", &f.SubtitleEn, homepageFlags.subtitleEn)
	set("subtitle-id", &f.SubtitleID, homepageFlags.subtitleID)
	set("link-type", &f.LinkType, homepageFlags.linkType)
	set("url", &f.CustomURL, homepageFlags.customURL)
	set("image-url", &f.ImageURL, homepageFlags.imageURL)
	set("status", &f.Status, homepageFlags.status)
	if cmd.Flags().Changed("brand") {
		f.LinkedBrandID = homepageFlags.brand
	}
	if cmd.Flags().Changed("category") {
		f.LinkedCategoryID = homepageFlags.category
	}
	if cmd.Flags().Changed("position") {
		pos := homepageFlags.position
		f.SortOrder = &pos
	} else if base.ID != 0 {
		pos := base.SortOrder
		f.SortOrder = &pos
	}
	return f
}

// saveHomepageItem validates form and runs save. A position given on the
// command line shifts the items at and after it first.
func saveHomepageItem(cmd *cobra.Command, app *App, form validate.HomepageForm, excludeID int, save func(ctx context.Context, item wpapi.HomepageItem) error) error {
	if err := form.Validate(); err != nil {
		return err
	}
	item := form.Item()
	item.ID = excludeID
	if !cmd.Flags().Changed("position") {
		return save(cmd.Context(), item)
	}
	editor := newEditor[wpapi.HomepageItem](app, "homepage item", app.API.HomepageItems())
	return editor.SaveWithKey(cmd.Context(), item.SortOrder, excludeID, func(ctx context.Context) error {
		return save(ctx, item)
	})
}

func runHomepageCreate(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)

	var created *wpapi.HomepageItem
	err := saveHomepageItem(cmd, app, homepageFormFrom(cmd, wpapi.HomepageItem{}), 0, func(ctx context.Context, item wpapi.HomepageItem) error {
		var err error
		created, err = app.API.CreateHomepageItem(ctx, item)
		return err
	})
	if err != nil {
		return err
	}
	return app.done(created, fmt.Sprintf("Created homepage item %q (#%d).", created.TitleEn, created.ID))
}

func runHomepageUpdate(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "homepage item")
	if err != nil {
		return err
	}
	current, err := app.API.GetHomepageItem(cmd.Context(), id)
	if err != nil {
		return err
	}

	var updated *wpapi.HomepageItem
	err = saveHomepageItem(cmd, app, homepageFormFrom(cmd, *current), id, func(ctx context.Context, item wpapi.HomepageItem) error {
		var err error
		updated, err = app.API.UpdateHomepageItem(ctx, id, item)
		return err
	})
	if err != nil {
		return err
	}
	return app.done(updated, fmt.Sprintf("Updated homepage item %q (#%d).", updated.TitleEn, updated.ID))
}

func runHomepageDelete(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "homepage item")
	if err != nil {
		return err
	}
	ok, err := confirm(app, homepageDeleteYes, fmt.Sprintf("Delete homepage item #%d?", id))
	if err != nil {
		return err
	}
	if !ok {
		return cancelled(app)
	}
	if err := app.API.DeleteHomepageItem(cmd.Context(), id); err != nil {
		return err
	}
	return app.done(map[string]any{"id": id, "deleted": true}, fmt.Sprintf("Deleted homepage item #%d.", id))
}

func runHomepageMove(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "homepage item")
	if err != nil {
		return err
	}
	position, err := parsePosition(args[1])
	if err != nil {
		return err
	}
	return moveItem(cmd, app, newEditor[wpapi.HomepageItem](app, "homepage item", app.API.HomepageItems()), id, position, homepageTable)
}

func runHomepageReorder(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	return runReorder(cmd, app, newEditor[wpapi.HomepageItem](app, "homepage item", app.API.HomepageItems()), homepageLabel)
}
