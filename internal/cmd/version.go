package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/guard"
	"github.com/felixgeelhaar/twcadmin/internal/version"
)

var versionVerbose bool

var versionCmd = guard.Public(&cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
})

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "show detailed version information")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	info := version.GetInfo()
	if !app.textOutput() {
		return app.print(info, nil)
	}
	if versionVerbose {
		return app.print(info.String(), nil)
	}
	return app.print("twcadmin "+info.Short(), nil)
}
