package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/config"
	"github.com/bmevideo/bmevideo/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set", "s", false, "Only variables that are set")
	envCmd.Flags().BoolP("unset", "u", false, "Only variables that are not set")
	envCmd.Flags().Bool("export", false, "Print set variables as shell export lines")
	envCmd.MarkFlagsMutuallyExclusive("set", "unset", "export")
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables that override settings",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			setOnly   = lo.Must(cmd.Flags().GetBool("set"))
			unsetOnly = lo.Must(cmd.Flags().GetBool("unset"))
			export    = lo.Must(cmd.Flags().GetBool("export"))
		)

		for _, v := range config.EnvVars() {
			value, present := os.LookupEnv(v.Name)
			switch {
			case (setOnly || export) && !present, unsetOnly && present:
				continue
			case export:
				cmd.Printf("export %s=%q\n", v.Name, value)
			default:
				printEnv(cmd.OutOrStdout(), v, value, present)
			}
		}
	},
}

func printEnv(out io.Writer, v config.EnvVar, value string, present bool) {
	shown := style.Fg(color.Red)("unset")
	if present {
		shown = style.Fg(color.Green)(value)
	}

	overrides := "config path"
	if v.Key != "" {
		overrides = v.Key
	}

	_, _ = fmt.Fprintf(out, "%s=%s %s\n", style.New().Bold(true).Foreground(color.Purple).Render(v.Name), shown, style.Faint("# "+overrides))
}
