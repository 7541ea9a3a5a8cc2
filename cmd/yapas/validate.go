package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrei-samofalov/yapas/pkg/cli"
	"github.com/andrei-samofalov/yapas/pkg/dispatcher"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and print the location table",
	Long: `Load the configuration with environment overrides applied, validate it and
print the resolved location table in declaration order.

Examples:
  # Validate the default configuration
  yapas validate

  # Validate a file and print JSON
  yapas validate --config yapas.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, csv")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := cli.Table{Headers: []string{"Pattern", "Kind"}}
	for _, loc := range cfg.Locations {
		kind, _ := dispatcher.ParseKind(loc.Kind)
		table.Rows = append(table.Rows, []string{dispatcher.NormalizePattern(loc.Pattern), kind.String()})
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		fmt.Fprintln(out, "✓ Configuration valid")
		fmt.Fprintf(out, "Upstream: %s\n\n", cfg.Upstream.Address)
	}
	return cli.NewFormatter(format).FormatTo(out, table)
}
