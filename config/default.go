package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/constant"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/style"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// Range bounds an integer setting. A negative Max leaves it unbounded above.
type Range struct {
	Min, Max int
}

// Contains reports whether v is within the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && (r.Max < 0 || v <= r.Max)
}

func (r Range) String() string {
	if r.Max < 0 {
		return fmt.Sprintf(">= %d", r.Min)
	}
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}

// Field is a registered setting with its default value.
// Integer fields may carry a Range that Validate enforces.
type Field struct {
	Key         string
	Value       any
	Description string
	Range       mo.Option[Range]
}

// Pretty renders the field with its current value for the terminal.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable that overrides this field.
func (f *Field) Env() string {
	return strings.ToUpper(constant.App + "_" + EnvKeyReplacer.Replace(f.Key))
}

// Type names the kind of value the field holds.
func (f *Field) Type() string {
	switch f.Value.(type) {
	case int:
		return "int"
	case bool:
		return "bool"
	default:
		return "string"
	}
}

// Parse converts raw command-line input to the field's type and checks its range.
func (f *Field) Parse(raw string) (any, error) {
	switch f.Value.(type) {
	case int:
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidValue, f.Key, raw)
		}
		if r, ok := f.Range.Get(); ok && !r.Contains(v) {
			return nil, fmt.Errorf("%w: %s must be %s, got %d", ErrInvalidValue, f.Key, r, v)
		}
		return v, nil
	case bool:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false, got %q", ErrInvalidValue, f.Key, raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// Bounds describes the accepted range, or is empty for unbounded fields.
func (f *Field) Bounds() string {
	if r, ok := f.Range.Get(); ok {
		return r.String()
	}
	return ""
}

// MarshalJSON includes the current value next to the default.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Env         string `json:"env"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Range       string `json:"range,omitempty"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Env:         f.Env(),
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Range:       f.Bounds(),
		Description: f.Description,
		Type:        f.Type(),
	})
}

// Default holds every registered field by key.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

// Lookup returns the field registered under k.
func Lookup(k string) mo.Option[Field] {
	if field, ok := Default[k]; ok {
		return mo.Some(field)
	}
	return mo.None[Field]()
}

// Fields returns every registered field ordered by key.
func Fields() []Field {
	fields := lo.Values(Default)
	slices.SortFunc(fields, func(a, b Field) int { return strings.Compare(a.Key, b.Key) })
	return fields
}

func init() {
	register := func(k string, v any, desc string, bounds ...Range) {
		if _, exists := Default[k]; exists {
			panic("duplicate config key: " + k)
		}
		field := Field{Key: k, Value: v, Description: desc}
		if len(bounds) > 0 {
			field.Range = mo.Some(bounds[0])
		}
		Default[k] = field
		EnvExposed = append(EnvExposed, k)
	}

	register(key.CacheDirectory, "", "Directory of the media cache.\nLeave empty to use the platform cache directory")
	register(key.CacheMaxSizeMB, 0, "Size budget of the media cache in megabytes.\nLeast recently played entries are evicted first. 0 disables eviction", Range{0, -1})
	register(key.PreloadMaxConcurrent, 3, "Maximum number of simultaneous preload transfers", Range{1, 64})
	register(key.PreloadTimeoutSeconds, 120, "Abort a single preload transfer after this many seconds. 0 disables the timeout", Range{0, -1})
	register(key.PoolMaxSize, 3, "Maximum number of idle playback engines kept for reuse", Range{0, 64})
	register(key.PlayerBackend, "mpv", "Decoder backend to use.\nAvailable options are: mpv")
	register(key.PlayerAutoplay, true, "Start playback as soon as a source is ready")
	register(key.PlayerRepeat, false, "Loop playback when the end of media is reached")
	register(key.PlayerMuted, false, "Start sessions muted")
	register(key.PlayerVolume, 100, "Initial volume in percent", Range{0, 100})
	register(key.PlayerProgressIntervalMs, 250, "Interval between progress events in milliseconds", Range{10, 10_000})
	register(key.PlayerSeekIgnoreMs, 300, "Window after a seek during which progress far from the target is dropped, in milliseconds", Range{0, 10_000})
	register(key.MetricsAddress, "", "Address to expose prometheus metrics on, e.g. 127.0.0.1:9090.\nLeave empty to disable")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, plain, squares, nerd (nerd-font required)")
	register(key.CliColored, true, "Enable colored CLI output")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":  style.Faint,
	"purple": style.Fg(color.Purple),
	"blue":   style.Fg(color.Blue),
	"value":  func(k string) any { return viper.Get(k) },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			return style.Fg(lo.Ternary(value, color.Green, color.Red))(strconv.FormatBool(value))
		case string:
			if value == "" {
				return style.Faint("empty")
			}
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl .Value }}
{{ blue "Type:" }}    {{ .Type }}{{ with .Bounds }}
{{ blue "Range:" }}   {{ . }}{{ end }}`))
