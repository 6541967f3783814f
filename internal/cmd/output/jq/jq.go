package jq

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/goccy/go-json"
	"github.com/itchyny/gojq"
	cmdpkg "github.com/kong/portpurge/internal/cmd"
	cmdcommon "github.com/kong/portpurge/internal/cmd/common"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

const (
	FlagName           = "jq"
	RawOutputFlagName  = "jq-raw-output"
	RawOutputFlagShort = "r"
	ThemeFlagName      = "jq-color-theme"
	DefaultTheme       = "friendly"
)

var jqQueryCache sync.Map

type Settings struct {
	Filter    string
	ColorMode cmdcommon.ColorMode
	Theme     string
	RawOutput bool
}

func AddFlags(flags *pflag.FlagSet) {
	flags.String(
		FlagName,
		"",
		"Filter the json or yaml report using a jq expression (powered by gojq)",
	)

	flags.String(
		ThemeFlagName,
		DefaultTheme,
		`Select the color theme used for colorized json output.
- Examples   : [ friendly, github-dark, dracula ]
- Reference  : [ https://xyproto.github.io/splash/docs/ ]`,
	)

	flags.BoolP(
		RawOutputFlagName,
		RawOutputFlagShort,
		false,
		"Output string jq results without JSON quotes (like jq -r).",
	)
}

// ResolveSettings reads the jq flags. colorMode comes from the global --color
// setting.
func ResolveSettings(flags *pflag.FlagSet, colorMode cmdcommon.ColorMode) (Settings, error) {
	settings := Settings{
		Theme:     DefaultTheme,
		ColorMode: colorMode,
	}
	if flags == nil || flags.Lookup(FlagName) == nil {
		return settings, nil
	}

	filter, err := flags.GetString(FlagName)
	if err != nil {
		return Settings{}, err
	}
	filter = strings.TrimSpace(filter)
	if flags.Changed(FlagName) && filter == "" {
		filter = "."
	}
	settings.Filter = filter

	if flags.Lookup(ThemeFlagName) != nil {
		theme, err := flags.GetString(ThemeFlagName)
		if err != nil {
			return Settings{}, err
		}
		if theme = strings.TrimSpace(theme); theme != "" {
			settings.Theme = theme
		}
	}

	if flags.Lookup(RawOutputFlagName) != nil {
		if settings.RawOutput, err = flags.GetBool(RawOutputFlagName); err != nil {
			return Settings{}, err
		}
	}
	return settings, nil
}

func HasFilter(settings Settings) bool {
	return strings.TrimSpace(settings.Filter) != ""
}

func ValidateOutputFormat(outType cmdcommon.OutputFormat, settings Settings) error {
	if settings.RawOutput {
		if !HasFilter(settings) {
			return &cmdpkg.ConfigurationError{
				Err: fmt.Errorf("--%s requires --%s", RawOutputFlagName, FlagName),
			}
		}
		if outType != cmdcommon.JSON {
			return &cmdpkg.ConfigurationError{
				Err: fmt.Errorf("--%s is only supported with --output json", RawOutputFlagName),
			}
		}
		return nil
	}

	if !HasFilter(settings) || outType == cmdcommon.JSON || outType == cmdcommon.YAML {
		return nil
	}
	return &cmdpkg.ConfigurationError{
		Err: fmt.Errorf("--%s is only supported with --output json or --output yaml", FlagName),
	}
}

// ApplyToRaw filters raw through the configured expression. When the result
// was already written to out (raw or colorized output) handled is true and
// the caller must not print anything else.
func ApplyToRaw(raw any, outType cmdcommon.OutputFormat, settings Settings, out io.Writer) (any, bool, error) {
	if !HasFilter(settings) {
		return raw, false, nil
	}

	if err := ValidateOutputFormat(outType, settings); err != nil {
		return nil, false, err
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode report before applying jq filter: %w", err)
	}

	if settings.RawOutput {
		if err := ApplyRawFilter(body, settings.Filter, out); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	filtered, err := ApplyFilter(body, settings.Filter)
	if err != nil {
		return nil, false, err
	}

	if outType == cmdcommon.JSON && ShouldUseColor(settings.ColorMode, out) {
		printable := MaybeColorizeOutput(filtered, BodyToPrintable(filtered), settings.Theme)
		if _, err := fmt.Fprintln(out, strings.TrimRight(printable, "\n")); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	var payload any
	if err := json.Unmarshal(filtered, &payload); err != nil {
		payload = strings.TrimRight(BodyToPrintable(filtered), "\n")
	}
	return payload, false, nil
}

func ApplyFilter(body []byte, filter string) ([]byte, error) {
	results, err := evaluateFilterResults(body, filter)
	if err != nil {
		return nil, err
	}
	return encodeFilterResults(results)
}

func ApplyRawFilter(body []byte, filter string, out io.Writer) error {
	results, err := evaluateFilterResults(body, filter)
	if err != nil {
		return err
	}
	for _, result := range results {
		if err := writeRawValue(result, out); err != nil {
			return err
		}
	}
	return nil
}

func evaluateFilterResults(body []byte, filter string) ([]any, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = "."
	}

	if len(body) == 0 {
		return nil, errors.New("report is empty, cannot apply jq filter")
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("report is not valid JSON: %w", err)
	}

	query, err := getCachedQuery(filter)
	if err != nil {
		return nil, err
	}

	iter := query.Run(payload)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq filter failed: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

// A single result is encoded as-is; several results become an array.
func encodeFilterResults(results []any) ([]byte, error) {
	var value any
	switch len(results) {
	case 0:
		return []byte("null"), nil
	case 1:
		value = results[0]
	default:
		value = results
	}

	filtered, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filtered result: %w", err)
	}
	return filtered, nil
}

func writeRawValue(value any, out io.Writer) error {
	line, ok := value.(string)
	if !ok {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode filtered result: %w", err)
		}
		line = string(encoded)
	}
	_, err := fmt.Fprintln(out, line)
	return err
}

func getCachedQuery(filter string) (*gojq.Code, error) {
	if code, ok := jqQueryCache.Load(filter); ok {
		cached, ok := code.(*gojq.Code)
		if !ok {
			return nil, fmt.Errorf("invalid cached jq code for filter %q", filter)
		}
		return cached, nil
	}

	parsed, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}

	jqQueryCache.Store(filter, code)
	return code, nil
}

func BodyToPrintable(body []byte) string {
	var js any
	if err := json.Unmarshal(body, &js); err != nil {
		return string(body)
	}
	formatted, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(formatted)
}

var terminalDetector = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func ShouldUseColor(mode cmdcommon.ColorMode, out io.Writer) bool {
	switch mode {
	case cmdcommon.ColorModeAlways:
		return true
	case cmdcommon.ColorModeNever:
		return false
	default:
		if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
			return false
		}
		return IsTerminal(out)
	}
}

// IsTerminal reports whether out is backed by a terminal file descriptor.
func IsTerminal(out io.Writer) bool {
	type fdWriter interface {
		Fd() uintptr
	}
	if fw, ok := out.(fdWriter); ok {
		return terminalDetector(fw.Fd())
	}
	return false
}

func MaybeColorizeOutput(raw []byte, formatted, theme string) string {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return formatted
	}
	switch payload.(type) {
	case map[string]any, []any:
	default:
		return formatted
	}

	lexer := lexers.Get("json")
	if lexer == nil {
		return formatted
	}
	iterator, err := lexer.Tokenise(nil, formatted)
	if err != nil {
		return formatted
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return formatted
	}

	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return formatted
	}
	return buf.String()
}
