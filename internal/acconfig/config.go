package acconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"acmanager/internal/apperr"
)

// Well-known sections and keys.
const (
	SectionServer = "SERVER"

	KeyName            = "NAME"
	KeyCars            = "CARS"
	KeyTrack           = "TRACK"
	KeyMaxClients      = "MAX_CLIENTS"
	KeyUDPPort         = "UDP_PORT"
	KeyTCPPort         = "TCP_PORT"
	KeyHTTPPort        = "HTTP_PORT"
	KeyRegisterToLobby = "REGISTER_TO_LOBBY"
)

// Default port triple used when the config leaves a port unset.
const (
	DefaultUDPPort  = 9600
	DefaultTCPPort  = 9600
	DefaultHTTPPort = 8081
)

// SessionSections are the timed session phases, in the order they run.
var SessionSections = []string{"BOOK", "PRACTICE", "QUALIFY", "RACE"}

// listFields are serialized as a single ';'-joined value.
var listFields = map[string]map[string]bool{
	SectionServer: {KeyCars: true},
}

const listDelimiter = ";"

func isListField(section, key string) bool { return listFields[section][key] }

// Section holds the keys of one [SECTION].
type Section map[string]any

// Config is a whole server configuration keyed by section name.
type Config map[string]Section

// Clone returns a deep copy.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for name, sec := range c {
		cp := make(Section, len(sec))
		for k, v := range sec {
			if l, ok := v.([]string); ok {
				v = append([]string(nil), l...)
			}
			cp[k] = v
		}
		out[name] = cp
	}
	return out
}

// Get returns the value of section.key.
func (c Config) Get(section, key string) (any, bool) {
	sec, ok := c[section]
	if !ok {
		return nil, false
	}
	v, ok := sec[key]
	return v, ok
}

// Set assigns section.key, creating the section if needed.
func (c Config) Set(section, key string, v any) {
	sec, ok := c[section]
	if !ok {
		sec = Section{}
		c[section] = sec
	}
	sec[key] = normalizeValue(section, key, v)
}

// String returns section.key rendered as text ("" when absent).
func (c Config) String(section, key string) string {
	v, ok := c.Get(section, key)
	if !ok {
		return ""
	}
	return formatScalar(v)
}

// Int returns section.key as an int, or def when absent or non-numeric.
func (c Config) Int(section, key string, def int) int {
	v, ok := c.Get(section, key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	}
	return def
}

// ServerName is SERVER.NAME.
func (c Config) ServerName() string { return c.String(SectionServer, KeyName) }

// SetServerName assigns SERVER.NAME.
func (c Config) SetServerName(name string) { c.Set(SectionServer, KeyName, name) }

// Cars returns the SERVER.CARS selection.
func (c Config) Cars() []string {
	v, ok := c.Get(SectionServer, KeyCars)
	if !ok {
		return nil
	}
	if l, ok := v.([]string); ok {
		return append([]string(nil), l...)
	}
	return splitList(formatScalar(v))
}

// Ports is the UDP/TCP/HTTP triple an instance binds.
type Ports struct {
	UDP  int `json:"udp"`
	TCP  int `json:"tcp"`
	HTTP int `json:"http"`
}

// PortsOf extracts the port triple, applying the defaults for unset ports.
func PortsOf(c Config) Ports {
	return Ports{
		UDP:  c.Int(SectionServer, KeyUDPPort, DefaultUDPPort),
		TCP:  c.Int(SectionServer, KeyTCPPort, DefaultTCPPort),
		HTTP: c.Int(SectionServer, KeyHTTPPort, DefaultHTTPPort),
	}
}

// CheckPorts reports a validation error for a port key that is present but
// is not a whole number in 1..65535. Absent ports fall back to the defaults.
func CheckPorts(c Config) error {
	for _, key := range []string{KeyUDPPort, KeyTCPPort, KeyHTTPPort} {
		v, ok := c.Get(SectionServer, key)
		if !ok {
			continue
		}
		n, valid := portNumber(v)
		if !valid || n < 1 || n > 65535 {
			return apperr.Validation("check ports", "%s.%s=%q is not a valid port", SectionServer, key, formatScalar(v))
		}
	}
	return nil
}

func portNumber(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Summary is the metadata derived from a config for preset listings.
type Summary struct {
	Track      string   `json:"track"`
	CarCount   int      `json:"car_count"`
	MaxClients int      `json:"max_clients"`
	Sessions   []string `json:"sessions"`
}

// Summarize derives the listing metadata of c.
func Summarize(c Config) Summary {
	s := Summary{
		Track:      c.String(SectionServer, KeyTrack),
		CarCount:   len(c.Cars()),
		MaxClients: c.Int(SectionServer, KeyMaxClients, 0),
		Sessions:   []string{},
	}
	for _, name := range SessionSections {
		if _, ok := c[name]; ok {
			s.Sessions = append(s.Sessions, name)
		}
	}
	return s
}

// UnmarshalJSON decodes a config and normalizes numbers and lists.
func (c *Config) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Config, len(raw))
	for name, sec := range raw {
		s := make(Section, len(sec))
		for k, v := range sec {
			s[k] = normalizeValue(name, k, v)
		}
		out[name] = s
	}
	*c = out
	return nil
}

func normalizeValue(section, key string, v any) any {
	if isListField(section, key) {
		switch x := v.(type) {
		case []string:
			return append([]string(nil), x...)
		case []any:
			out := make([]string, 0, len(x))
			for _, e := range x {
				out = append(out, formatScalar(normalizeScalar(e)))
			}
			return out
		case nil:
			return []string{}
		default:
			return splitList(formatScalar(normalizeScalar(x)))
		}
	}
	if l, ok := v.([]any); ok {
		out := make([]string, 0, len(l))
		for _, e := range l {
			out = append(out, formatScalar(normalizeScalar(e)))
		}
		return out
	}
	if l, ok := v.([]string); ok {
		return append([]string(nil), l...)
	}
	return normalizeScalar(v)
}

func normalizeScalar(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case string, int64, float64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case float32:
		return float64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []string:
		return strings.Join(x, listDelimiter)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, listDelimiter) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sectionOrder returns SERVER first, then the session phases, then the rest
// alphabetically so encoded files are stable.
func sectionOrder(c Config) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range append([]string{SectionServer}, SessionSections...) {
		if _, ok := c[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range c {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func sortedKeys(s Section) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
