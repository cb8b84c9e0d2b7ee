package cmd

import (
	"encoding/json"
	"os"
	"reflect"

	"github.com/bmevideo/bmevideo/session"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolP("cache", "c", false, "Generate the JSON Schema for cache ls --json")
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schemas for structured outputs",
	Long: `Generate JSON schemas for structured outputs.
By default the schema describes the status lines of play --json.`,
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			return "bmevideo." + t.Name()
		}

		var schema *jsonschema.Schema

		switch {
		case lo.Must(cmd.Flags().GetBool("cache")):
			schema = reflector.Reflect([]cacheListing{})
		default:
			schema = reflector.Reflect(&session.PlaybackStatus{})
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(schema))
	},
}
