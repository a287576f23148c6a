package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reportbot/internal/config"
	"reportbot/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Check the configuration and print every setting",
	Long: `Check the configuration and print every setting. Secrets are masked.
Exits with status 2 when a required setting is missing or invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printSettings(w, cfg.Settings())

		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(w)
			color.New(color.FgRed, color.Bold).Fprintln(w, "Configuration is invalid:")
			fmt.Fprintln(w, err)
			return &exitError{code: pipeline.ExitConfig}
		}
		fmt.Fprintln(w)
		color.New(color.FgGreen, color.Bold).Fprintln(w, "Configuration is valid.")
		return nil
	},
}

func printSettings(w io.Writer, settings []config.Setting) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, s := range settings {
		switch {
		case s.IsSet():
			fmt.Fprintf(w, "%s %-22s %s\n", ok("✓"), s.Name, s.Display())
		case s.Required:
			fmt.Fprintf(w, "%s %-22s %s\n", bad("✗"), s.Name, bad("missing"))
		default:
			fmt.Fprintf(w, "%s %-22s %s\n", dim("-"), s.Name, dim("not set"))
		}
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
