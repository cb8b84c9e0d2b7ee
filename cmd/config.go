package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/config"
	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/icon"
	"github.com/bmevideo/bmevideo/style"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// field resolves a key, suggesting the closest registered one when it is unknown.
func field(k string) config.Field {
	f, ok := config.Lookup(k).Get()
	if ok {
		return f
	}

	closest := lo.MinBy(lo.Keys(config.Default), func(a, b string) bool {
		return levenshtein.Distance(k, a) < levenshtein.Distance(k, b)
	})
	handleErr(fmt.Errorf("unknown key %s, did you mean %s?", style.Fg(color.Red)(k), style.Fg(color.Yellow)(closest)))
	return config.Field{}
}

func completeKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

func success(format string, args ...any) {
	fmt.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, args...))
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInfoCmd, configGetCmd, configSetCmd, configResetCmd, configWriteCmd, configDeleteCmd)

	configInfoCmd.Flags().BoolP("json", "j", false, "Print the fields as JSON")
	configSetCmd.Flags().StringP("key", "k", "", "Key to update, instead of the first argument")
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
	configWriteCmd.Flags().BoolP("force", "f", false, "Replace an existing config file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
	Long: `Inspect and change settings.

Settings are read from the config file shown by "where config" and can be
overridden by environment variables, see the env command.`,
}

var configInfoCmd = &cobra.Command{
	Use:               "info [keys...]",
	Short:             "Describe settings with their current value, default and accepted range",
	ValidArgsFunction: completeKeys,
	Run: func(cmd *cobra.Command, args []string) {
		fields := config.Fields()
		if len(args) > 0 {
			fields = lo.Map(args, func(k string, _ int) config.Field { return field(k) })
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(lo.ToSlicePtr(fields)))
			return
		}

		for i := range fields {
			if i > 0 {
				cmd.Println()
			}
			cmd.Println(fields[i].Pretty())
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get <keys...>",
	Short:             "Print the current value of settings",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeKeys,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			cmd.Println(viper.Get(field(args[0]).Key))
			return
		}

		for _, k := range args {
			cmd.Printf("%s = %v\n", style.Fg(color.Purple)(field(k).Key), viper.Get(k))
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value>",
	Short:             "Change a setting and save it to the config file",
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeKeys,
	Example:           "  bmevideo config set player.volume 60\n  bmevideo config set --key cache.max_size_mb 2048",
	Run: func(cmd *cobra.Command, args []string) {
		k := lo.Must(cmd.Flags().GetString("key"))
		if k == "" {
			k, args = args[0], args[1:]
		}
		if len(args) != 1 {
			handleErr(errors.New("expected exactly one value"))
		}

		f := field(k)
		value, err := f.Parse(args[0])
		handleErr(err)

		previous := viper.Get(k)
		viper.Set(k, value)
		if err := config.Validate(); err != nil {
			viper.Set(k, previous)
			handleErr(err)
		}
		handleErr(config.Save())

		success("%s is now %s", style.Fg(color.Purple)(k), style.Fg(color.Yellow)(fmt.Sprint(value)))
	},
}

var configResetCmd = &cobra.Command{
	Use:               "reset [keys...]",
	Short:             "Restore settings to their defaults",
	ValidArgsFunction: completeKeys,
	Run: func(cmd *cobra.Command, args []string) {
		fields := lo.Map(args, func(k string, _ int) config.Field { return field(k) })
		if lo.Must(cmd.Flags().GetBool("all")) {
			fields = config.Fields()
		}
		if len(fields) == 0 {
			handleErr(errors.New("name the keys to reset or pass --all"))
		}

		for _, f := range fields {
			viper.Set(f.Key, f.Value)
		}
		handleErr(config.Save())

		if len(fields) == 1 {
			success("%s reset to %s", style.Fg(color.Purple)(fields[0].Key), style.Fg(color.Yellow)(fmt.Sprint(fields[0].Value)))
			return
		}
		success("reset %d settings", len(fields))
	},
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current settings to a new config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := config.Path()
		if lo.Must(cmd.Flags().GetBool("force")) {
			if exists := lo.Must(filesystem.API().Exists(path)); exists {
				handleErr(filesystem.API().Remove(path))
			}
		}

		handleErr(viper.SafeWriteConfig())
		success("wrote %s", path)
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove", "rm"},
	Short:   "Delete the config file, falling back to defaults",
	Run: func(cmd *cobra.Command, args []string) {
		path := config.Path()
		handleErr(filesystem.API().Remove(path))
		success("deleted %s", path)
	},
}
