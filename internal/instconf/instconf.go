// Package instconf reads the shell-style KEY=value configuration file
// consumed by the Dokku install and uninstall scripting. Values may
// reference earlier keys with $KEY or ${KEY}; references are expanded
// at parse time so consumers only ever see literal values.
package instconf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrMalformedLine    = errors.New("instconf: malformed line")
	ErrDuplicateKey     = errors.New("instconf: duplicate key")
	ErrUnknownReference = errors.New("instconf: reference to unknown key")
	ErrBadKey           = errors.New("instconf: invalid key")
)

// Config holds the parsed assignments in file order. Each key has
// exactly one value.
type Config struct {
	keys   []string
	values map[string]string
}

// Parse reads KEY=value assignments from r. Blank lines and lines
// starting with '#' are skipped; an optional "export " prefix on an
// assignment is accepted and ignored.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{values: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedLine, lineno, line)
		}
		key = strings.TrimSpace(key)
		if !validKey(key) {
			return nil, fmt.Errorf("%w: line %d: %q", ErrBadKey, lineno, key)
		}
		if _, seen := cfg.values[key]; seen {
			return nil, fmt.Errorf("%w: line %d: %q", ErrDuplicateKey, lineno, key)
		}

		value, err := cfg.expandValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}

		cfg.keys = append(cfg.keys, key)
		cfg.values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load parses the install configuration at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("instconf load failed (%s): %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Lookup returns the value for key and whether it was assigned.
func (c *Config) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Get returns the value for key, or "" when unassigned.
func (c *Config) Get(key string) string {
	return c.values[key]
}

// Keys returns assignment keys in file order.
func (c *Config) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len reports the number of assignments.
func (c *Config) Len() int {
	return len(c.keys)
}

// expandValue strips one level of quoting and substitutes $KEY/${KEY}
// references against keys assigned earlier in the file. Single-quoted
// values are literal.
func (c *Config) expandValue(raw string) (string, error) {
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return raw[1 : len(raw)-1], nil
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}

	var out strings.Builder
	for i := 0; i < len(raw); {
		ch := raw[i]
		if ch != '$' {
			out.WriteByte(ch)
			i++
			continue
		}

		name, next, err := refName(raw, i)
		if err != nil {
			return "", err
		}
		value, ok := c.values[name]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownReference, name)
		}
		out.WriteString(value)
		i = next
	}
	return out.String(), nil
}

// refName parses a $KEY or ${KEY} reference starting at raw[i] and
// returns the key name and the index just past the reference.
func refName(raw string, i int) (string, int, error) {
	i++ // past '$'
	if i < len(raw) && raw[i] == '{' {
		end := strings.IndexByte(raw[i:], '}')
		if end < 0 {
			return "", 0, fmt.Errorf("%w: unterminated ${ in %q", ErrMalformedLine, raw)
		}
		name := raw[i+1 : i+end]
		if !validKey(name) {
			return "", 0, fmt.Errorf("%w: %q", ErrBadKey, name)
		}
		return name, i + end + 1, nil
	}

	start := i
	for i < len(raw) && isKeyByte(raw[i]) {
		i++
	}
	if i == start {
		return "", 0, fmt.Errorf("%w: bare $ in %q", ErrMalformedLine, raw)
	}
	return raw[start:i], i, nil
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	if key[0] >= '0' && key[0] <= '9' {
		return false
	}
	for i := 0; i < len(key); i++ {
		if !isKeyByte(key[i]) {
			return false
		}
	}
	return true
}

func isKeyByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_':
		return true
	}
	return false
}
