package detection

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-objectdetection/models/labels"
)

// CustomObjects is the set of class names a detection call may return. A nil set allows every
// class; an empty, non-nil set allows none.
type CustomObjects map[string]struct{}

// NewCustomObjects builds a filter validated against a label set.
//
// Arguments:
//   - set: The labels the model can emit.
//   - names: Class names in display ("cell phone") or keyword ("cell_phone") form.
//
// Returns:
//   - CustomObjects: The filter, keyed by display name.
//   - error: An error wrapping ErrUnknownObject for a name outside the set.
//
// @example
//
//	filter, err := NewCustomObjects(labels.COCO, "person", "cell_phone")
func NewCustomObjects(set *labels.Set, names ...string) (CustomObjects, error) {
	objects := make(CustomObjects, len(names))
	for _, name := range names {
		idx, ok := set.Index(name)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownObject, "%q", name)
		}
		display, _ := set.Name(idx)
		objects[display] = struct{}{}
	}
	return objects, nil
}

// Allows reports whether detections of the named class pass the filter.
func (c CustomObjects) Allows(name string) bool {
	if c == nil {
		return true
	}
	_, ok := c[name]
	return ok
}

// Names returns the allowed names in sorted order.
func (c CustomObjects) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
