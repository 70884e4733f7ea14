// Package catalog holds the fixed list of services a lead can be filed for.
package catalog

import (
	"fmt"
	"strings"
)

// Branch tags the conversation sub-flow a service uses.
type Branch string

const (
	BranchNeuro         Branch = "neuro"
	BranchRestoration   Branch = "restoration"
	BranchModel3D       Branch = "model3d"
	BranchContent       Branch = "content"
	BranchVideoGreeting Branch = "video_greeting"
	BranchDefault       Branch = "default"
)

// Entry is a single catalog service.
type Entry struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Branch Branch `yaml:"branch"`
}

// Catalog is an ordered, read-only id <-> title mapping.
type Catalog struct {
	entries []Entry
	byID    map[string]int
	byTitle map[string]int
}

// Defaults returns the built-in service list in menu order.
func Defaults() []Entry {
	return []Entry{
		{ID: "neuro", Title: "🧠 Neuro photo session", Branch: BranchNeuro},
		{ID: "restoration", Title: "🛠 Photo/video restoration", Branch: BranchRestoration},
		{ID: "model3d", Title: "🎨 3D model from a drawing", Branch: BranchModel3D},
		{ID: "content", Title: "📢 Content for social media/ads", Branch: BranchContent},
		{ID: "photo_stories", Title: "🖼 Clips and stories from photos", Branch: BranchDefault},
		{ID: "video_greeting", Title: "🎬 Video greeting", Branch: BranchVideoGreeting},
	}
}

// New builds a catalog. Ids and titles must be unique and non-empty.
// Entries without a branch are classified by title.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
		byTitle: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		e.Title = strings.TrimSpace(e.Title)
		if e.ID == "" || e.Title == "" {
			return nil, fmt.Errorf("catalog: entry %q has empty id or title", e.ID+e.Title)
		}
		if strings.ContainsAny(e.ID, ": ") {
			return nil, fmt.Errorf("catalog: id %q must not contain ':' or spaces", e.ID)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", e.ID)
		}
		if _, dup := c.byTitle[e.Title]; dup {
			return nil, fmt.Errorf("catalog: duplicate title %q", e.Title)
		}
		if e.Branch == "" {
			e.Branch = classifyTitle(e.Title)
		}
		if !e.Branch.valid() {
			return nil, fmt.Errorf("catalog: entry %q has unknown branch %q", e.ID, e.Branch)
		}
		c.byID[e.ID] = len(c.entries)
		c.byTitle[e.Title] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	if len(c.entries) == 0 {
		return nil, fmt.Errorf("catalog: no services")
	}
	return c, nil
}

// MustDefault returns the built-in catalog.
func MustDefault() *Catalog {
	c, err := New(Defaults())
	if err != nil {
		panic(err)
	}
	return c
}

// Len reports the number of services.
func (c *Catalog) Len() int { return len(c.entries) }

// TitleOf resolves a service id to its display title.
func (c *Catalog) TitleOf(id string) (string, bool) {
	i, ok := c.byID[id]
	if !ok {
		return "", false
	}
	return c.entries[i].Title, true
}

// IDOf resolves a display title to its service id.
func (c *Catalog) IDOf(title string) (string, bool) {
	i, ok := c.byTitle[title]
	if !ok {
		return "", false
	}
	return c.entries[i].ID, true
}

// Titles returns the titles in definition order.
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Title
	}
	return out
}

// Entries returns a copy of the entries in definition order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Entry looks a service up by id.
func (c *Catalog) Entry(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// ByIndex returns the service at a 1-based menu position.
func (c *Catalog) ByIndex(n int) (Entry, bool) {
	if n < 1 || n > len(c.entries) {
		return Entry{}, false
	}
	return c.entries[n-1], true
}

// IndexOf returns the 1-based menu position of a service id, or 0.
func (c *Catalog) IndexOf(id string) int {
	i, ok := c.byID[id]
	if !ok {
		return 0
	}
	return i + 1
}

// Classify returns the branch for a title: the tag of a known entry, or a
// keyword match for titles outside the catalog.
func (c *Catalog) Classify(title string) Branch {
	if i, ok := c.byTitle[strings.TrimSpace(title)]; ok {
		return c.entries[i].Branch
	}
	return classifyTitle(title)
}
