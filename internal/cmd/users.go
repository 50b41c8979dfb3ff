package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/validate"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

var usersCmd = requireAdmin(&cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "Manage WordPress users (administrators only)",
	Long: `Manage WordPress user accounts. Requires the administrator role or the
manage_options capability.

Examples:
  twcadmin users list --role shop_manager
  twcadmin users create --email jo@example.com --password 's3cret-pass' --role shop_manager
  twcadmin users delete 17 --reassign 1`,
})

var usersListOpts struct {
	listOptions
	roles []string
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersGet,
}

var userFlags validate.UserForm

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user; the username is the email's local part",
	Args:  cobra.NoArgs,
	RunE:  runUsersCreate,
}

var usersDeleteOpts struct {
	reassign int
	yes      bool
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user permanently",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

func init() {
	addListFlags(usersListCmd, &usersListOpts.listOptions)
	usersListCmd.Flags().StringSliceVar(&usersListOpts.roles, "role", nil, "only users with one of these roles")

	f := usersCreateCmd.Flags()
	f.StringVar(&userFlags.Email, "email", "", "email address (required)")
	f.StringVar(&userFlags.Password, "password", "", "password, at least 8 characters (required)")
	f.StringVar(&userFlags.Name, "name", "", "display name")
	f.StringVar(&userFlags.FirstName, "first-name", "", "first name")
	f.StringVar(&userFlags.LastName, "last-name", "", "last name")
	f.StringSliceVar(&userFlags.Roles, "role", nil, "roles (default subscriber)")

	usersDeleteCmd.Flags().IntVar(&usersDeleteOpts.reassign, "reassign", 0, "user id that receives the deleted user's content")
	usersDeleteCmd.Flags().BoolVarP(&usersDeleteOpts.yes, "yes", "y", false, "do not ask for confirmation")

	usersCmd.AddCommand(usersListCmd, usersGetCmd, usersCreateCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}

func userTable(users []wpapi.User) ux.Table {
	t := ux.Table{Head: []string{"ID", "USERNAME", "NAME", "EMAIL", "ROLES"}}
	for _, u := range users {
		t.Body = append(t.Body, []string{itoa(u.ID), u.Login(), orDash(u.Name), orDash(u.Email), orDash(strings.Join(u.Roles, ", "))})
	}
	return t
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	p := wpapi.UserListParams{ListParams: usersListOpts.params(app), Roles: usersListOpts.roles}

	page, err := app.API.ListUsers(cmd.Context(), p)
	if err != nil {
		return err
	}
	if err := app.print(page.Items, userTable(page.Items)); err != nil {
		return err
	}
	pageFooter(app, p.Page, page.TotalPages, page.Total)
	return nil
}

func runUsersGet(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "user")
	if err != nil {
		return err
	}
	u, err := app.API.GetUser(cmd.Context(), id)
	if err != nil {
		return err
	}
	return app.print(u, userTable([]wpapi.User{*u}))
}

func runUsersCreate(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	if err := userFlags.Validate(); err != nil {
		return err
	}
	u, err := app.API.CreateUser(cmd.Context(), userFlags.Input())
	if err != nil {
		return err
	}
	return app.done(u, fmt.Sprintf("Created user %q (#%d) with roles %s.", u.Login(), u.ID, strings.Join(u.Roles, ", ")))
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	id, err := parseID(args[0], "user")
	if err != nil {
		return err
	}
	o := usersDeleteOpts
	if o.reassign == id {
		return usageError("cannot reassign content to the user being deleted")
	}
	if me := app.Session.Snapshot().User; me != nil && me.ID == id {
		return usageError("refusing to delete the signed-in account", "Sign in as another administrator first")
	}

	question := fmt.Sprintf("Delete user #%d permanently?", id)
	if o.reassign > 0 {
		question = fmt.Sprintf("Delete user #%d and give their content to #%d?", id, o.reassign)
	}
	ok, err := confirm(app, o.yes, question)
	if err != nil {
		return err
	}
	if !ok {
		return cancelled(app)
	}
	if err := app.API.DeleteUser(cmd.Context(), id, o.reassign); err != nil {
		return err
	}
	return app.done(map[string]any{"id": id, "deleted": true, "reassign": o.reassign}, fmt.Sprintf("Deleted user #%d.", id))
}
