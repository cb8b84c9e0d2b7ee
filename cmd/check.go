package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/constant"
	"github.com/bmevideo/bmevideo/icon"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/player"
	"github.com/bmevideo/bmevideo/style"
	"github.com/bmevideo/bmevideo/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the configured decoder backend is installed",
	Run: func(cmd *cobra.Command, args []string) {
		backend := viper.GetString(key.PlayerBackend)
		path := CheckDependencies()

		fmt.Printf(
			"%s %s found at %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(util.Capitalize(backend)),
			path,
		)
	},
}

// CheckDependencies exits with an install hint when the configured backend's binary is missing.
func CheckDependencies() string {
	backend := viper.GetString(key.PlayerBackend)
	if _, err := player.NewDecoder(backend); err != nil {
		handleErr(err)
	}

	path, ok := player.Available(backend)
	if !ok {
		printMissingDependencyError(player.Backends[backend].Binary)
		os.Exit(1)
	}
	return path
}

func installHint(dep string) string {
	switch runtime.GOOS {
	case constant.Darwin:
		return "brew install " + dep
	case constant.Linux:
		return "sudo apt install " + dep
	case constant.Windows:
		return "scoop install " + dep
	case constant.Android:
		return "pkg install " + dep
	default:
		return ""
	}
}

func printMissingDependencyError(dep string) {
	title := style.ErrorTitle(fmt.Sprintf("%s Missing dependency", icon.Get(icon.Fail)))
	body := fmt.Sprintf("The required program '%s' was not found in your PATH.", dep)

	lines := []string{title, "", body}
	if hint := installHint(dep); hint != "" {
		lines = append(lines, "", "To install it, try running:", "  "+style.New().Foreground(color.Amber).Bold(true).Render(hint))
	}

	fmt.Println(style.Box(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}
