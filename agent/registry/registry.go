package registry

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

// Entry pairs a descriptor with the implementation that serves it.
type Entry struct {
	Descriptor contractx.ToolDescriptor
	Impl       contractx.Tool
}

// Registry is the process-wide tool catalog. It is populated once at
// startup and treated as read-only afterwards, so reads take no lock.
type Registry struct {
	entries map[string]Entry
	order   []string
	sealed  bool
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]Entry, 16),
	}
}

// Register adds a descriptor and its implementation. It fails with
// ErrDuplicateTool when the id is already taken.
func (r *Registry) Register(desc contractx.ToolDescriptor, impl contractx.Tool) error {
	id := strings.TrimSpace(desc.ID)
	if id == "" {
		return fmt.Errorf("%w: tool id is empty", contractx.ErrValidation)
	}
	if impl == nil {
		return fmt.Errorf("%w: tool %s has no implementation", contractx.ErrValidation, id)
	}
	if desc.Reliability < 0 || desc.Reliability > 1 {
		return fmt.Errorf("%w: tool %s reliability out of range", contractx.ErrValidation, id)
	}
	if r.sealed {
		return fmt.Errorf("%w: registry is sealed", contractx.ErrValidation)
	}
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("%w: %s", contractx.ErrDuplicateTool, id)
	}

	desc.ID = id
	r.entries[id] = Entry{Descriptor: desc, Impl: impl}
	r.order = append(r.order, id)
	sort.Strings(r.order)
	return nil
}

// Seal marks the end of startup registration. Further Register calls fail.
func (r *Registry) Seal() {
	r.sealed = true
}

// Get returns the entry for id, or ErrUnknownTool.
func (r *Registry) Get(id string) (Entry, error) {
	entry, ok := r.entries[strings.TrimSpace(id)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, id)
	}
	return entry, nil
}

// List returns descriptors in stable id order, optionally filtered by
// category. The empty category returns everything.
func (r *Registry) List(category string) []contractx.ToolDescriptor {
	out := make([]contractx.ToolDescriptor, 0, len(r.order))
	for _, id := range r.order {
		desc := r.entries[id].Descriptor
		if category != "" && desc.Category != category {
			continue
		}
		out = append(out, desc)
	}
	return out
}

// Categories returns the distinct tool categories, sorted.
func (r *Registry) Categories() []string {
	seen := make(map[string]struct{}, len(r.entries))
	var cats []string
	for _, id := range r.order {
		cat := r.entries[id].Descriptor.Category
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Alternates returns ids of other tools sharing the descriptor's
// category, in id order. Used by the fallback planner to substitute.
func (r *Registry) Alternates(id string) []string {
	entry, ok := r.entries[id]
	if !ok {
		return nil
	}
	var alts []string
	for _, other := range r.order {
		if other == id {
			continue
		}
		if r.entries[other].Descriptor.Category == entry.Descriptor.Category {
			alts = append(alts, other)
		}
	}
	return alts
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.entries)
}
