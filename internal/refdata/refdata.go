// Package refdata provides the reference dictionary: canonical subject,
// outlet, critic, and venue names with alias resolution. Pure lookups over
// data loaded once at startup.
package refdata

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Subject is a known show with its canonical identifier and aliases.
type Subject struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// NamedEntry is a canonical name with aliases, used for outlets and critics.
type NamedEntry struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases,omitempty"`
}

type file struct {
	Subjects []Subject    `yaml:"subjects"`
	Outlets  []NamedEntry `yaml:"outlets"`
	Critics  []NamedEntry `yaml:"critics"`
	Venues   []string     `yaml:"venues"`
}

// Dictionary answers canonicalization lookups. Immutable after load; safe
// for concurrent use.
type Dictionary struct {
	subjects   map[string]Subject // canonical id → subject
	aliasIndex map[string]string  // folded alias → canonical id
	outlets    map[string]string  // folded alias → canonical name
	critics    map[string]string
	venues     map[string]bool

	caser cases.Caser
}

// Load reads a dictionary from a YAML file.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read %s", path)
	}
	return Parse(data)
}

// Parse builds a dictionary from YAML bytes.
func Parse(data []byte) (*Dictionary, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "refdata: unmarshal")
	}

	d := &Dictionary{
		subjects:   make(map[string]Subject, len(f.Subjects)),
		aliasIndex: make(map[string]string),
		outlets:    make(map[string]string),
		critics:    make(map[string]string),
		venues:     make(map[string]bool, len(f.Venues)),
		caser:      cases.Fold(),
	}

	for _, s := range f.Subjects {
		if s.ID == "" || s.Title == "" {
			return nil, eris.Errorf("refdata: subject missing id or title: %+v", s)
		}
		d.subjects[s.ID] = s
		d.aliasIndex[d.fold(s.Title)] = s.ID
		for _, a := range s.Aliases {
			d.aliasIndex[d.fold(a)] = s.ID
		}
	}
	for _, o := range f.Outlets {
		d.outlets[d.fold(o.Canonical)] = o.Canonical
		for _, a := range o.Aliases {
			d.outlets[d.fold(a)] = o.Canonical
		}
	}
	for _, c := range f.Critics {
		d.critics[d.fold(c.Canonical)] = c.Canonical
		for _, a := range c.Aliases {
			d.critics[d.fold(a)] = c.Canonical
		}
	}
	for _, v := range f.Venues {
		d.venues[d.fold(v)] = true
	}

	return d, nil
}

func (d *Dictionary) fold(s string) string {
	return d.caser.String(strings.TrimSpace(s))
}

// ResolveSubject maps a title or alias to its canonical subject ID.
func (d *Dictionary) ResolveSubject(name string) (string, bool) {
	id, ok := d.aliasIndex[d.fold(name)]
	return id, ok
}

// SubjectTitle returns the canonical title for a subject ID.
func (d *Dictionary) SubjectTitle(id string) (string, bool) {
	s, ok := d.subjects[id]
	return s.Title, ok
}

// Subjects returns all known subjects.
func (d *Dictionary) Subjects() []Subject {
	out := make([]Subject, 0, len(d.subjects))
	for _, s := range d.subjects {
		out = append(out, s)
	}
	return out
}

// CanonicalOutlet resolves an outlet name or alias to its canonical form.
func (d *Dictionary) CanonicalOutlet(name string) (string, bool) {
	c, ok := d.outlets[d.fold(name)]
	return c, ok
}

// CanonicalCritic resolves a critic name or alias to its canonical form.
func (d *Dictionary) CanonicalCritic(name string) (string, bool) {
	c, ok := d.critics[d.fold(name)]
	return c, ok
}

// ValidVenue reports whether the venue name is known.
func (d *Dictionary) ValidVenue(name string) bool {
	return d.venues[d.fold(name)]
}

// MentionedSubjects returns the IDs of known subjects other than excludeID
// whose title or alias appears in the text. Used to detect index pages
// that landed instead of the target document.
func (d *Dictionary) MentionedSubjects(text string, excludeID string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var ids []string
	for id, s := range d.subjects {
		if id == excludeID {
			continue
		}
		names := append([]string{s.Title}, s.Aliases...)
		for _, n := range names {
			if n == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(n)) {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
				break
			}
		}
	}
	return ids
}
