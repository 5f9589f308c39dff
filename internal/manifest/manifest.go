// Package manifest parses the pinned dependency manifest shipped with
// the application: one package specifier per line, optionally carrying
// a version constraint or a direct source URL.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

var (
	ErrBadSpecifier = errors.New("manifest: malformed specifier")
	ErrBadName      = errors.New("manifest: invalid package name")
)

// constraint operators, longest first so "==" wins over "=".
var operators = []string{"==", ">=", "<=", "~=", "!=", "<", ">"}

// Requirement is one parsed dependency specifier.
type Requirement struct {
	// Name as written in the manifest.
	Name string
	// Constraint operator ("==", ">=", ...), empty when unconstrained
	// or sourced from a URL.
	Constraint string
	// Version the constraint applies to.
	Version string
	// SourceURL for requirements fetched from a repository or archive
	// instead of an index.
	SourceURL string
}

// Canonical returns the normalized name used for lookups: lowercase
// with underscores folded to hyphens, the way package indexes compare
// names.
func (r Requirement) Canonical() string {
	return CanonicalName(r.Name)
}

// String renders the requirement back in manifest form.
func (r Requirement) String() string {
	if r.SourceURL != "" {
		if r.Name != "" {
			return r.Name + " @ " + r.SourceURL
		}
		return r.SourceURL
	}
	if r.Constraint == "" {
		return r.Name
	}
	return r.Name + r.Constraint + r.Version
}

// Manifest holds requirements in file order with normalized-name
// lookup.
type Manifest struct {
	reqs  []Requirement
	byKey map[string]int
}

// Parse reads specifiers from r. Comments ('#' to end of line) and
// blank lines are skipped.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{byKey: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		req, err := parseSpecifier(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		if key := req.Canonical(); key != "" {
			m.byKey[key] = len(m.reqs)
		}
		m.reqs = append(m.reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest load failed (%s): %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Requirements returns parsed requirements in file order.
func (m *Manifest) Requirements() []Requirement {
	out := make([]Requirement, len(m.reqs))
	copy(out, m.reqs)
	return out
}

// Lookup finds a requirement by name, compared in canonical form.
func (m *Manifest) Lookup(name string) (Requirement, bool) {
	i, ok := m.byKey[CanonicalName(name)]
	if !ok {
		return Requirement{}, false
	}
	return m.reqs[i], true
}

// Names returns canonical requirement names, sorted.
func (m *Manifest) Names() []string {
	out := make([]string, 0, len(m.byKey))
	for name := range m.byKey {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CanonicalName normalizes a package name for comparison.
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

func parseSpecifier(line string) (Requirement, error) {
	// "name @ url" direct references
	if name, url, ok := strings.Cut(line, "@"); ok && isURL(strings.TrimSpace(url)) {
		name = strings.TrimSpace(name)
		if name != "" && !validName(name) {
			return Requirement{}, fmt.Errorf("%w: %q", ErrBadName, name)
		}
		return Requirement{Name: name, SourceURL: strings.TrimSpace(url)}, nil
	}

	// bare VCS/archive URLs; the name rides in the #egg= fragment
	if isURL(line) || strings.HasPrefix(line, "git+") {
		name := ""
		if _, frag, ok := strings.Cut(line, "#egg="); ok {
			name = frag
			if amp := strings.IndexByte(name, '&'); amp >= 0 {
				name = name[:amp]
			}
		}
		return Requirement{Name: name, SourceURL: line}, nil
	}

	for _, op := range operators {
		name, ver, ok := strings.Cut(line, op)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		ver = strings.TrimSpace(ver)
		if !validName(name) {
			return Requirement{}, fmt.Errorf("%w: %q", ErrBadName, name)
		}
		if ver == "" {
			return Requirement{}, fmt.Errorf("%w: %q", ErrBadSpecifier, line)
		}
		return Requirement{Name: name, Constraint: op, Version: ver}, nil
	}

	if !validName(line) {
		return Requirement{}, fmt.Errorf("%w: %q", ErrBadSpecifier, line)
	}
	return Requirement{Name: line}, nil
}

func isURL(s string) bool {
	for _, prefix := range []string{"http://", "https://", "git+http://", "git+https://", "git+ssh://"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		switch {
		case b >= 'a' && b <= 'z':
		case b >= 'A' && b <= 'Z':
		case b >= '0' && b <= '9':
		case b == '-' || b == '_' || b == '.':
		case b == '[' || b == ']' || b == ',':
			// extras, e.g. uvicorn[standard]
		default:
			return false
		}
	}
	return true
}
