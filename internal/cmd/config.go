package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/twcadmin/internal/config"
	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/guard"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
)

var configCmd = guard.Public(&cobra.Command{
	Use:   "config",
	Short: "View or edit twcadmin configuration",
	Long: `Manage configuration stored at ~/.twcadmin/config.yaml.

Every key can also be set with a TWC_* environment variable, e.g.
TWC_API_BASE_URL for api.base_url, or in a .env file next to the config file.

Examples:
  twcadmin config view
  twcadmin config get api.base_url
  twcadmin config set api.base_url https://shop.example.com
  twcadmin config keys`,
})

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one configuration value to the config file",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the known configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in $EDITOR",
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

func init() {
	configCmd.AddCommand(configViewCmd, configGetCmd, configSetCmd, configKeysCmd, configPathCmd, configEditCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func runConfigView(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	if !app.textOutput() {
		return app.print(app.Config, nil)
	}

	data, err := yaml.Marshal(app.Config)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "# %s\n%s", configPath(), data)
	return nil
}

// configValue looks key up in the YAML rendering of cfg, so durations and
// other values print the way they are written in the file.
func configValue(cfg *config.Config, key string) (any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			node = nil
			break
		}
		node = m[part]
	}
	if node == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown configuration key %q", key)).
			WithSuggestion("Run 'twcadmin config keys' to list them")
	}
	return node, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	value, err := configValue(app.Config, args[0])
	if err != nil {
		return err
	}
	if app.textOutput() {
		fmt.Fprintln(app.Out, value)
		return nil
	}
	return app.print(map[string]any{args[0]: value}, nil)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	key, value := args[0], args[1]
	if err := config.Set(configPath(), key, value); err != nil {
		return err
	}
	return app.done(map[string]string{key: value}, fmt.Sprintf("Set %s = %s", key, value))
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	keys := config.Keys()
	t := ux.Table{Head: []string{"KEY", "ENVIRONMENT"}}
	for _, k := range keys {
		env := config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(k, ".", "_"))
		t.Body = append(t.Body, []string{k, env})
	}
	return app.print(keys, t)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	return app.print(configPath(), nil)
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	app := mustApp(cmd)
	path := configPath()

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	editorCmd := exec.CommandContext(cmd.Context(), editor, path)
	editorCmd.Stdin = app.In
	editorCmd.Stdout = app.Out
	editorCmd.Stderr = app.Err
	if err := editorCmd.Run(); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "run editor "+editor, err)
	}

	if _, err := config.Load(path, nil); err != nil {
		fmt.Fprintln(app.Err, "The configuration file now contains errors; fix it before running other commands.")
		return err
	}
	return app.done(map[string]string{"path": path}, "Configuration updated.")
}
