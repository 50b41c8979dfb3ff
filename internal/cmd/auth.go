package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/guard"
	"github.com/felixgeelhaar/twcadmin/internal/session"
	"github.com/felixgeelhaar/twcadmin/internal/tui"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/validate"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in and out of the store",
	Long: `Manage the session with the store.

Signing in exchanges your WordPress username (or email) and password for a
bearer token, stored with its refresh token in ~/.twcadmin/credentials.yaml.
Expired bearers are refreshed once per request; when that fails the session
ends and you have to sign in again.

Examples:
  twcadmin auth login -u admin
  printf '%s' "$PASSWORD" | twcadmin auth login -u admin --password-stdin
  twcadmin auth status
  twcadmin auth logout`,
}

var loginOpts struct {
	username      string
	password      string
	passwordStdin bool
}

var authLoginCmd = guard.Public(&cobra.Command{
	Use:   "login",
	Short: "Sign in with username or email and password",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
})

var authLogoutCmd = guard.Public(&cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
})

var authStatusCmd = guard.Public(&cobra.Command{
	Use:   "status",
	Short: "Show whether a session is active and when its token expires",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
})

var authWhoamiCmd = guard.Authenticated(&cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user with roles and capabilities",
	Args:  cobra.NoArgs,
	RunE:  runAuthWhoami,
})

var profileFlags struct {
	validate.ProfileForm
	passwordStdin bool
}

var authProfileCmd = guard.Authenticated(&cobra.Command{
	Use:   "profile",
	Short: "Update your own name, email or password",
	Long: `Update the signed-in account. Only the given flags change; the profile is
reloaded from the store afterwards.

Examples:
  twcadmin auth profile --name "Shop Admin" --email admin@example.com
  printf '%s' "$NEW_PASSWORD" | twcadmin auth profile --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runAuthProfile,
})

var authValidateCmd = guard.Public(&cobra.Command{
	Use:   "validate",
	Short: "Ask the store whether the stored token is still valid",
	Args:  cobra.NoArgs,
	RunE:  runAuthValidate,
})

func init() {
	f := authLoginCmd.Flags()
	f.StringVarP(&loginOpts.username, "username", "u", "", "username or email")
	f.StringVarP(&loginOpts.password, "password", "p", "", "password (prefer --password-stdin)")
	f.BoolVar(&loginOpts.passwordStdin, "password-stdin", false, "read the password from stdin")

	pf := authProfileCmd.Flags()
	pf.StringVar(&profileFlags.Name, "name", "", "display name")
	pf.StringVar(&profileFlags.FirstName, "first-name", "", "first name")
	pf.StringVar(&profileFlags.LastName, "last-name", "", "last name")
	pf.StringVar(&profileFlags.Email, "email", "", "email address")
	pf.StringVar(&profileFlags.Password, "password", "", "new password, at least 8 characters (prefer --password-stdin)")
	pf.BoolVar(&profileFlags.passwordStdin, "password-stdin", false, "read the new password from stdin")

	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd, authWhoamiCmd, authProfileCmd, authValidateCmd)
	rootCmd.AddCommand(authCmd)
}

// credentials resolves the username and password from flags, stdin or an
// interactive form.
func credentials(app *App) (string, string, error) {
	username, password := strings.TrimSpace(loginOpts.username), loginOpts.password

	if loginOpts.passwordStdin {
		if password != "" {
			return "", "", usageError("--password and --password-stdin are mutually exclusive")
		}
		raw, err := io.ReadAll(app.In)
		if err != nil {
			return "", "", errors.Wrap(errors.ErrCodeFileReadFailed, "read password from stdin", err)
		}
		password = strings.TrimRight(string(raw), "\r\n")
	}

	if username != "" && password != "" {
		return username, password, nil
	}
	if !tui.ShouldPrompt() {
		return "", "", usageError("username and password are required",
			"Pass --username and --password-stdin when not running in a terminal")
	}
	creds, err := tui.PromptForCredentials(username)
	if err != nil {
		return "", "", err
	}
	return creds.Username, creds.Password, nil
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	ctx := cmd.Context()

	username, password, err := credentials(app)
	if err != nil {
		return err
	}
	if err := app.Session.Login(ctx, username, password); err != nil {
		return err
	}

	snap := app.Session.Snapshot()
	returnTo := app.Session.ConsumeReturnTo(ctx)
	if !app.textOutput() {
		return app.print(map[string]any{"user": snap.User, "return_to": returnTo}, nil)
	}

	fmt.Fprintf(app.Out, "Signed in as %s (%s).\n", snap.User.DisplayName, snap.User.Username)
	if returnTo != "" && returnTo != guard.RootPath {
		fmt.Fprintf(app.Out, "Continue where you left off: %s %s\n", cmd.Root().Name(), returnTo)
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	app.Session.Logout(cmd.Context())
	return app.done(map[string]bool{"authenticated": false}, "Signed out.")
}

// authStatus is the output of auth status.
type authStatus struct {
	Authenticated bool                 `json:"authenticated" yaml:"authenticated"`
	State         string               `json:"state" yaml:"state"`
	Store         string               `json:"store" yaml:"store"`
	User          *session.UserProfile `json:"user,omitempty" yaml:"user,omitempty"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

func (s authStatus) String() string {
	if !s.Authenticated {
		return fmt.Sprintf("Not signed in to %s.", s.Store)
	}
	line := fmt.Sprintf("Signed in to %s as %s (%s).", s.Store, s.User.DisplayName, s.User.Username)
	if s.ExpiresAt != nil {
		line += fmt.Sprintf(" Token expires %s.", humanize.Time(*s.ExpiresAt))
	}
	return line
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	app.Session.Bootstrap(cmd.Context())

	snap := app.Session.Snapshot()
	status := authStatus{
		Authenticated: snap.IsAuthenticated(),
		State:         snap.State.String(),
		Store:         app.Gateway.BaseURL(),
		User:          snap.User,
	}
	if exp, ok := session.TokenExpiry(snap.Token); ok {
		status.ExpiresAt = &exp
	}
	return app.print(status, nil)
}

// profileTable lists the user's fields, one per row.
func profileTable(p *session.UserProfile) ux.Table {
	caps := make([]string, 0, len(p.Capabilities))
	for c, granted := range p.Capabilities {
		if granted {
			caps = append(caps, c)
		}
	}
	sort.Strings(caps)

	admin := "no"
	if p.IsAdmin() {
		admin = "yes"
	}
	return ux.Table{
		Head: []string{"FIELD", "VALUE"},
		Body: [][]string{
			{"id", itoa(p.ID)},
			{"username", p.Username},
			{"name", orDash(p.DisplayName)},
			{"email", orDash(p.Email)},
			{"roles", orDash(strings.Join(p.Roles, ", "))},
			{"admin", admin},
			{"capabilities", fmt.Sprintf("%d granted", len(caps))},
		},
	}
}

func runAuthWhoami(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	user := app.Session.Snapshot().User
	return app.print(user, profileTable(user))
}

func runAuthProfile(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	ctx := cmd.Context()

	form := profileFlags.ProfileForm
	if profileFlags.passwordStdin {
		if form.Password != "" {
			return usageError("--password and --password-stdin are mutually exclusive")
		}
		raw, err := io.ReadAll(app.In)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFileReadFailed, "read password from stdin", err)
		}
		form.Password = strings.TrimRight(string(raw), "\r\n")
	}
	if form == (validate.ProfileForm{}) {
		return usageError("nothing to update", "Pass at least one of --name, --first-name, --last-name, --email or --password")
	}
	if err := form.Validate(); err != nil {
		return err
	}

	me := app.Session.Snapshot().User
	if _, err := app.API.UpdateUser(ctx, me.ID, form.Input()); err != nil {
		return err
	}
	if err := app.Session.RefreshUser(ctx); err != nil {
		return err
	}

	user := app.Session.Snapshot().User
	if app.textOutput() {
		fmt.Fprintf(app.Out, "Updated profile for %s.\n", user.Username)
	}
	return app.print(user, profileTable(user))
}

func runAuthValidate(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	ctx := cmd.Context()

	if err := app.Session.CheckToken(ctx); err != nil {
		if !session.Rejected(err) {
			return err
		}
		return errors.NewAuthExpiredError(nil).
			WithSuggestion("A missing or revoked token is reported the same way")
	}
	return app.done(map[string]bool{"valid": true}, "Token is valid.")
}
