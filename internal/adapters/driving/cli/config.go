package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit the settings file",
	Long: `Reads and writes ~/.drivesync/config.toml (or the file named by --config).
Keys use dot notation, for example sync.max_folder_depth or ingest.url.
Environment variables still override file values.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	RunE:  runConfigPath,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one value, or every value when no key is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a value",
	Long: `Stores a value in the settings file. Integers and booleans are stored
with their TOML types; everything else is stored as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configEditor == nil {
		return notConfigured("config store")
	}
	cmd.Println(configEditor.Path())
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configEditor == nil {
		return notConfigured("config store")
	}

	if len(args) == 1 {
		val, ok := configEditor.Get(args[0])
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}
		cmd.Printf("%v\n", val)
		return nil
	}

	keys := configEditor.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		val, _ := configEditor.Get(k)
		cmd.Printf("%s = %v\n", k, val)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configEditor == nil {
		return notConfigured("config store")
	}

	if err := configEditor.Set(args[0], parseValue(args[1])); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	cmd.Printf("%s updated in %s\n", args[0], configEditor.Path())
	return nil
}

// parseValue keeps integers and booleans typed in TOML.
func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
