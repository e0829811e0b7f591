package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/pkg/config"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/model"
)

var configCmd = &cobra.Command{
	Use:   "config <command>",
	Short: "Manage registry configuration",
	Long: `Manage registry configuration stored in .regis/config.yaml.

Keys:
  storage.backend               - Table storage backend (csv, sqlite)
  storage.data_dir              - Directory holding the tables
  security.hasher               - Password digest (sha256, bcrypt)
  security.bcrypt_cost          - bcrypt work factor
  security.audit_failed_logins  - Record failed logins in the audit log
  logging.level                 - debug, info, warn, error
  logging.format                - json, text
  output.format                 - Default output format (text, json)

Environment variables prefixed REGIS_ and a .env file in the registry root
override the file. Changing a value requires an admin session.`,
	DisableFlagsInUseLine: true,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := requireRepo()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, r)
		if err != nil {
			return err
		}

		if jsonOutput {
			values := make(map[string]string, len(config.Keys()))
			for _, key := range config.Keys() {
				values[key], _ = cfg.Get(key)
			}
			return outputJSON(values)
		}

		fmt.Printf("# Location: %s\n", config.Path(r.Root))
		for _, key := range config.Keys() {
			v, _ := cfg.Get(key)
			fmt.Printf("%s: %s\n", key, v)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.Keys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := requireRepo()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, r)
		if err != nil {
			return err
		}
		value, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]string{"key": args[0], "value": value})
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in .regis/config.yaml.

Examples:
  regis config set security.audit_failed_logins true
  regis config set output.format json`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := requireRepo()
		if err != nil {
			return err
		}
		reg, err := openAt(cmd, r)
		if err != nil {
			return err
		}
		session, err := reg.session()
		reg.Close()
		if err != nil {
			return err
		}
		if session.Role != model.RoleAdmin {
			return errclass.ErrPermissionDenied.WithMessagef("role %s may not change configuration", session.Role)
		}

		// Read the file alone so environment overrides are not persisted.
		cfg, err := config.LoadFile(r.Root)
		if err != nil {
			return err
		}
		key, value := args[0], args[1]
		before, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(r.Root, cfg); err != nil {
			return errclass.ErrIOFailure.Wrap(err, "save config")
		}

		after, _ := cfg.Get(key)
		if (key == "storage.backend" || key == "storage.data_dir") && before != after {
			fmtWarn("existing tables are not moved; run 'regis init' or copy the data yourself")
		}
		if jsonOutput {
			return outputJSON(map[string]string{"key": key, "value": after})
		}
		fmt.Printf("Set %s = %s\n", key, after)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
