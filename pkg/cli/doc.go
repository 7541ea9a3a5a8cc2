/*
Package cli provides command-line helpers for the yapas command.

Output Formatting:

Command results such as the location table are built as a Table and written
in text, JSON or CSV:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	table := cli.Table{Headers: []string{"Pattern", "Kind"}, Rows: rows}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, table); err != nil {
		return err
	}

Errors:

Configuration problems are reported as *ConfigError and mapped to exit code 2
by ExitCode; any other command failure is a *CommandError (exit code 1).
*/
package cli
