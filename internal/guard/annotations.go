package guard

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Command annotation keys.
const (
	AnnotationPublic            = "twc.public"
	AnnotationAuthenticated     = "twc.authenticated"
	AnnotationRequireAdmin      = "twc.require-admin"
	AnnotationRequireCapability = "twc.require-capability"
	AnnotationRequireRole       = "twc.require-role"
)

// Public marks a command as usable without signing in.
func Public(cmd *cobra.Command) *cobra.Command {
	annotate(cmd, AnnotationPublic, "true")
	return cmd
}

// Authenticated marks a command as needing a session but no particular role.
func Authenticated(cmd *cobra.Command) *cobra.Command {
	annotate(cmd, AnnotationAuthenticated, "true")
	return cmd
}

// Protect attaches req to cmd. Roles are stored comma separated.
func Protect(cmd *cobra.Command, req Requirements) *cobra.Command {
	if req.RequireAdmin {
		annotate(cmd, AnnotationRequireAdmin, "true")
	}
	if req.RequireCapability != "" {
		annotate(cmd, AnnotationRequireCapability, req.RequireCapability)
	}
	if len(req.RequireRoles) > 0 {
		annotate(cmd, AnnotationRequireRole, strings.Join(req.RequireRoles, ","))
	}
	return cmd
}

func annotate(cmd *cobra.Command, key, value string) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[key] = value
}

// RequirementsFor resolves the requirements of cmd by walking up to the root.
// The nearest command that declares anything wins. A command that declares
// nothing, all the way up, needs a session. public reports whether the
// command needs no session at all; only explicit Public annotations and
// cobra's own help and completion commands are public.
func RequirementsFor(cmd *cobra.Command) (req Requirements, public bool) {
	if builtin(cmd) {
		return Requirements{}, true
	}
	for c := cmd; c != nil; c = c.Parent() {
		a := c.Annotations
		if len(a) == 0 {
			continue
		}
		if v, _ := strconv.ParseBool(a[AnnotationPublic]); v {
			return Requirements{}, true
		}
		found, _ := strconv.ParseBool(a[AnnotationAuthenticated])
		if v, _ := strconv.ParseBool(a[AnnotationRequireAdmin]); v {
			req.RequireAdmin = true
			found = true
		}
		if v := a[AnnotationRequireCapability]; v != "" {
			req.RequireCapability = v
			found = true
		}
		if v := a[AnnotationRequireRole]; v != "" {
			for _, r := range strings.Split(v, ",") {
				if r = strings.TrimSpace(r); r != "" {
					req.RequireRoles = append(req.RequireRoles, r)
				}
			}
			found = true
		}
		if found {
			return req, false
		}
	}
	return Requirements{}, false
}

// builtin reports whether cmd sits under a command cobra adds itself.
func builtin(cmd *cobra.Command) bool {
	top := cmd
	for top.HasParent() && top.Parent().HasParent() {
		top = top.Parent()
	}
	if !top.HasParent() {
		return false
	}
	switch top.Name() {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	default:
		return false
	}
}

// Location names cmd the way a user would type it, without the root name.
func Location(cmd *cobra.Command) string {
	path := cmd.CommandPath()
	if root := cmd.Root(); root != nil {
		path = strings.TrimPrefix(path, root.Name())
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return RootPath
	}
	return path
}
