// Package labels - Class label sets for detection model outputs.
package labels

import (
	"strings"
)

// Style identifies how a model family indexes its class labels.
type Style string

const (
	// StyleYOLO is the zero-based 80-class COCO list used by YOLO models.
	StyleYOLO Style = "yolo"
	// StyleTorchvision is the 91-id COCO category list used by torchvision detectors, with
	// "__background__" at index 0 and "N/A" for unused category ids.
	StyleTorchvision Style = "torchvision"
)

const (
	background  = "__background__"
	unavailable = "N/A"
)

// Class represents one detection label.
type Class struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// Set ties a style to its full list of labels.
type Set struct {
	// Style is the class set identifier.
	Style Style
	// Classes that are supported and mappable, in model index order.
	Classes []Class
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewSet builds a label set from names in model index order.
//
// Placeholder entries ("__background__", "N/A") keep their index but are not addressable
// by name.
//
// Arguments:
//   - style: The class set identifier.
//   - names: The labels, where names[i] is the label for index i.
//
// Returns:
//   - *Set: The indexed label set.
func NewSet(style Style, names []string) *Set {
	s := &Set{
		Style:     style,
		Classes:   make([]Class, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, name := range names {
		s.Classes[i] = Class{Index: i, Name: name}
		if isPlaceholder(name) {
			continue
		}
		s.nameToIdx[name] = i
	}
	return s
}

// Name returns the label for a model index.
//
// Returns:
//   - string: The label.
//   - bool: False if the index is out of range or a placeholder.
func (s *Set) Name(idx int) (string, bool) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", false
	}
	name := s.Classes[idx].Name
	if isPlaceholder(name) {
		return "", false
	}
	return name, true
}

// Index returns the model index for a label, accepting keyword form ("cell_phone").
func (s *Set) Index(name string) (int, bool) {
	idx, ok := s.nameToIdx[Normalize(name)]
	return idx, ok
}

// Contains reports whether the set can emit the given label.
func (s *Set) Contains(name string) bool {
	_, ok := s.Index(name)
	return ok
}

// Names returns every addressable label in index order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.nameToIdx))
	for _, c := range s.Classes {
		if !isPlaceholder(c.Name) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Normalize converts a keyword-style class name to its display form.
//
// Arguments:
//   - name: A label such as "cell_phone" or " Cell Phone ".
//
// Returns:
//   - string: The display form, e.g. "cell phone".
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", " ")
}

func isPlaceholder(name string) bool {
	return name == background || name == unavailable
}
