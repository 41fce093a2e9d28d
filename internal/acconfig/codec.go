package acconfig

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"acmanager/internal/apperr"
)

func init() {
	// The server expects KEY=value with no padding around '='.
	ini.PrettyFormat = false
}

// CARS=a;b must not be cut at ';', so inline comments are disabled. The
// server reads quotes literally, so they are kept as part of the value.
var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
	PreserveSurroundedQuote: true,
}

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// omitWhenEmpty lists keys the server rejects when present with no value.
var omitWhenEmpty = map[string]map[string]bool{
	SectionServer: {
		"WELCOME_MESSAGE":     true,
		"AUTH_PLUGIN_ADDRESS": true,
	},
}

// defaultedOnWrite are filled in when absent so an unset field never turns on
// a side effect (public lobby listing) by accident.
var defaultedOnWrite = map[string]map[string]any{
	SectionServer: {KeyRegisterToLobby: int64(0)},
}

// Parse decodes server config text. Numeric values become int64/float64 and
// list fields become []string; everything else stays text.
func Parse(data []byte) (Config, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, apperr.Validation("parse config", "%v", err)
	}
	cfg := Config{}
	for _, sec := range f.Sections() {
		keys := sec.Keys()
		if sec.Name() == ini.DefaultSection && len(keys) == 0 {
			continue
		}
		s := Section{}
		for _, k := range keys {
			s[k.Name()] = decodeValue(sec.Name(), k.Name(), k.Value())
		}
		cfg[sec.Name()] = s
	}
	return cfg, nil
}

func decodeValue(section, key, raw string) any {
	if isListField(section, key) {
		return splitList(raw)
	}
	if numericPattern.MatchString(raw) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

// Encode renders cfg in the server's format. cfg is not modified.
func Encode(cfg Config) ([]byte, error) {
	c := cfg.Clone()
	if c == nil {
		c = Config{}
	}
	for section, defs := range defaultedOnWrite {
		for key, v := range defs {
			if _, ok := c.Get(section, key); !ok {
				c.Set(section, key, v)
			}
		}
	}

	f := ini.Empty(loadOptions)
	for _, name := range sectionOrder(c) {
		sec, err := f.NewSection(name)
		if err != nil {
			return nil, apperr.Validation("encode config", "section %q: %v", name, err)
		}
		for _, key := range sortedKeys(c[name]) {
			v := c[name][key]
			if omitWhenEmpty[name][key] && formatScalar(v) == "" {
				continue
			}
			if strings.ContainsAny(lineValue(name, key, v), "\r\n") {
				return nil, apperr.Validation("encode config", "key %s.%s: value contains a line break", name, key)
			}
			if _, err := sec.NewKey(key, genericValue(v)); err != nil {
				return nil, apperr.Validation("encode config", "key %s.%s: %v", name, key, err)
			}
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, apperr.Validation("encode config", "%v", err)
	}
	return rawLines(buf.Bytes(), configLookup(c)), nil
}

// genericValue is the plain serializer; lists come out JSON-shaped here and
// are corrected by rawLines.
func genericValue(v any) string {
	if l, ok := v.([]string); ok {
		b, _ := json.Marshal(l)
		return string(b)
	}
	return formatScalar(v)
}

// lineValue is the exact text written after KEY=.
func lineValue(section, key string, v any) string {
	if isListField(section, key) {
		if _, isList := v.([]string); isList {
			return formatScalar(v)
		}
		return formatScalar(splitList(formatScalar(v)))
	}
	return genericValue(v)
}

// valueLookup returns the raw text of section.key.
type valueLookup func(section, key string) (string, bool)

func configLookup(c Config) valueLookup {
	return func(section, key string) (string, bool) {
		v, ok := c[section][key]
		if !ok {
			return "", false
		}
		return lineValue(section, key, v), true
	}
}

func fileLookup(f *ini.File) valueLookup {
	return func(section, key string) (string, bool) {
		sec, err := f.GetSection(section)
		if err != nil || !sec.HasKey(key) {
			return "", false
		}
		return sec.Key(key).Value(), true
	}
}

// writeRaw serializes f with every value written verbatim.
func writeRaw(f *ini.File) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return rawLines(buf.Bytes(), fileLookup(f)), nil
}

// rawLines rewrites every KEY=value line with the value exactly as the server
// expects it: list fields joined with ';' and no quoting of values that carry
// surrounding spaces, quotes or backticks. Lookups follow the section headers,
// so a key is only rewritten from its own section.
func rawLines(text []byte, lookup valueLookup) []byte {
	var out bytes.Buffer
	section := ini.DefaultSection
	for _, line := range bytes.SplitAfter(text, []byte("\n")) {
		body := bytes.TrimRight(line, "\r\n")
		eol := line[len(body):]
		switch {
		case len(body) > 1 && body[0] == '[' && body[len(body)-1] == ']':
			section = string(body[1 : len(body)-1])
		default:
			if i := bytes.IndexByte(body, '='); i > 0 {
				key := string(body[:i])
				if v, ok := lookup(section, key); ok {
					body = []byte(key + "=" + v)
				}
			}
		}
		out.Write(body)
		out.Write(eol)
	}
	return out.Bytes()
}
