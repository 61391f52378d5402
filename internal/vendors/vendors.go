// Package vendors holds header alias profiles for specific timing systems.
//
// The core alias table covers spellings shared by most exports. A profile
// adds the spellings one vendor uses and overrides the ones it uses
// differently, such as Orbits swapping the meaning of Gap and Diff.
package vendors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/telemetry/internal/core"
)

// ErrUnknownProfile is returned for a profile name that is not built in.
var ErrUnknownProfile = errors.New("unknown vendor profile")

// Profile is a named set of alias overrides.
type Profile struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Aliases     []core.Alias `json:"aliases"`
}

var builtin = []Profile{
	orbitsProfile,
	speedhiveProfile,
	trdProfile,
}

// Profiles returns the built-in profiles sorted by name.
func Profiles() []Profile {
	out := make([]Profile, len(builtin))
	copy(out, builtin)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a profile by name, case-insensitively.
func Lookup(name string) (Profile, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range builtin {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Table returns the default alias table extended by the named profiles in
// order. A later profile overrides aliases set by an earlier one. Blank
// names are ignored.
func Table(names ...string) (*core.AliasTable, error) {
	return Apply(core.DefaultAliasTable(), names...)
}

// Apply extends base by the named profiles in order.
func Apply(base *core.AliasTable, names ...string) (*core.AliasTable, error) {
	t := base
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		next, err := t.Extend(p.Aliases)
		if err != nil {
			return nil, fmt.Errorf("vendor profile %s: %w", p.Name, err)
		}
		t = next
	}
	return t, nil
}
