package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nvandessel/aisociety/internal/config"
	"github.com/nvandessel/aisociety/internal/society"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage aisoc configuration",
		Long: `View and modify aisoc configuration settings.

Configuration is stored in ~/.aisoc/config.yaml. Simulation defaults are
stored as fractions (0.3 means 30%).

Examples:
  aisoc config list                            # Show all settings
  aisoc config get defaults.years              # Get a specific setting
  aisoc config set defaults.ai_tax_rate 0.4    # Set a setting
  aisoc config set server.addr localhost:8080`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

// configKeys lists the settable keys in display order.
var configKeys = []string{
	"defaults.years",
	"defaults.population",
	"defaults.start_automation",
	"defaults.automation_growth",
	"defaults.ubi_enabled",
	"defaults.ubi_amount",
	"defaults.ai_tax_rate",
	"server.addr",
	"server.open_browser",
	"server.max_years",
	"server.max_population",
	"server.requests_per_minute",
	"server.burst",
	"store.path",
	"logging.level",
	"logging.format",
	"telemetry.endpoint",
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Configuration (~/.aisoc/config.yaml):")
			section := ""
			for _, key := range configKeys {
				if s, _, _ := strings.Cut(key, "."); s != section {
					section = s
					fmt.Fprintln(out)
				}
				value, _ := getConfigValue(cfg, key)
				if s, ok := value.(string); ok {
					value = valueOrDefault(s, "(default)")
				}
				fmt.Fprintf(out, "  %-28s %v\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
					return nil
				}
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			path, err := config.Path()
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (interface{}, bool) {
	switch key {
	case "defaults.years":
		return cfg.Defaults.Years, true
	case "defaults.population":
		return cfg.Defaults.Population, true
	case "defaults.start_automation":
		return cfg.Defaults.StartAutomation, true
	case "defaults.automation_growth":
		return cfg.Defaults.AutomationGrowth, true
	case "defaults.ubi_enabled":
		return cfg.Defaults.UBIEnabled, true
	case "defaults.ubi_amount":
		return cfg.Defaults.UBIAmount, true
	case "defaults.ai_tax_rate":
		return cfg.Defaults.AITaxRate, true
	case "server.addr":
		return cfg.Server.Addr, true
	case "server.open_browser":
		return cfg.Server.OpenBrowser, true
	case "server.max_years":
		return cfg.Server.MaxYears, true
	case "server.max_population":
		return cfg.Server.MaxPopulation, true
	case "server.requests_per_minute":
		return cfg.Server.RequestsPerMinute, true
	case "server.burst":
		return cfg.Server.Burst, true
	case "store.path":
		return cfg.Store.Path, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.format":
		return cfg.Logging.Format, true
	case "telemetry.endpoint":
		return cfg.Telemetry.Endpoint, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to config.Validate.
func setConfigValue(cfg *config.Config, key, value string) error {
	d := &cfg.Defaults
	switch key {
	case "defaults.years":
		return setInt(&d.Years, key, value)
	case "defaults.population":
		return setInt(&d.Population, key, value)
	case "defaults.start_automation":
		return setFloat(&d.StartAutomation, key, value)
	case "defaults.automation_growth":
		return setFloat(&d.AutomationGrowth, key, value)
	case "defaults.ubi_enabled":
		return setBool(&d.UBIEnabled, key, value)
	case "defaults.ubi_amount":
		return setFloat(&d.UBIAmount, key, value)
	case "defaults.ai_tax_rate":
		return setFloat(&d.AITaxRate, key, value)
	case "server.addr":
		cfg.Server.Addr = value
	case "server.open_browser":
		return setBool(&cfg.Server.OpenBrowser, key, value)
	case "server.max_years":
		return setInt(&cfg.Server.MaxYears, key, value)
	case "server.max_population":
		return setInt(&cfg.Server.MaxPopulation, key, value)
	case "server.requests_per_minute":
		return setFloat(&cfg.Server.RequestsPerMinute, key, value)
	case "server.burst":
		return setInt(&cfg.Server.Burst, key, value)
	case "store.path":
		cfg.Store.Path = value
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	case "telemetry.endpoint":
		cfg.Telemetry.Endpoint = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return &society.InvalidInputError{Field: key, Value: value, Reason: "must be an integer"}
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return &society.InvalidInputError{Field: key, Value: value, Reason: "must be a number"}
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return &society.InvalidInputError{Field: key, Value: value, Reason: "must be true or false"}
	}
	*dst = b
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
