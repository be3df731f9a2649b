package inference

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DataType is the element type of a tensor.
type DataType string

const (
	// DataTypeFloat32 is a 32-bit float tensor.
	DataTypeFloat32 DataType = "float32"
	// DataTypeInt64 is a 64-bit integer tensor.
	DataTypeInt64 DataType = "int64"
)

// Dynamic marks a dimension whose size is only known at run time.
const Dynamic int64 = -1

// TensorSpec describes a named network input or output.
type TensorSpec struct {
	// Name is the graph node name.
	Name string `json:"name" yaml:"name"`
	// Shape lists the dimensions; Dynamic entries match any size.
	Shape []int64 `json:"shape" yaml:"shape"`
	// DataType is the element type.
	DataType DataType `json:"data_type" yaml:"data_type"`
}

// Matches reports whether a concrete or declared shape fits this tensor.
//
// Arguments:
//   - shape: The shape to compare. Dynamic entries on either side match anything.
//
// Returns:
//   - bool: True if the ranks agree and every fixed dimension is equal.
func (s TensorSpec) Matches(shape []int64) bool {
	if len(shape) != len(s.Shape) {
		return false
	}
	for i, want := range s.Shape {
		got := shape[i]
		if want == Dynamic || got <= 0 {
			continue
		}
		if want != got {
			return false
		}
	}
	return true
}

func (s TensorSpec) String() string {
	dims := make([]string, len(s.Shape))
	for i, d := range s.Shape {
		if d == Dynamic {
			dims[i] = "?"
			continue
		}
		dims[i] = fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("%s %s[%s]", s.Name, s.DataType, strings.Join(dims, ","))
}

// Tensor is a named, densely packed tensor. Exactly one of Float32 or Int64 is set.
type Tensor struct {
	Name    string
	Shape   []int64
	Float32 []float32
	Int64   []int64
}

// DataType returns the element type held by the tensor.
func (t Tensor) DataType() DataType {
	if t.Int64 != nil {
		return DataTypeInt64
	}
	return DataTypeFloat32
}

// Len returns the number of elements the shape describes.
func (t Tensor) Len() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return int(n)
}

// Validate checks that the backing slice matches the shape.
//
// Returns:
//   - error: An error describing the mismatch, nil otherwise.
func (t Tensor) Validate() error {
	var have int
	switch t.DataType() {
	case DataTypeInt64:
		have = len(t.Int64)
	default:
		have = len(t.Float32)
	}
	if have != t.Len() {
		return errors.Errorf("tensor %q has %d elements, shape %v needs %d", t.Name, have, t.Shape, t.Len())
	}
	return nil
}

// Outputs holds the tensors produced by one run, keyed by output name.
type Outputs map[string]Tensor

// Float32 returns the float32 output with the given name.
//
// Arguments:
//   - name: The output node name.
//
// Returns:
//   - Tensor: The output tensor.
//   - error: An error if the output is missing or holds another element type.
func (o Outputs) Float32(name string) (Tensor, error) {
	t, ok := o[name]
	if !ok {
		return Tensor{}, errors.Errorf("output %q not produced", name)
	}
	if t.DataType() != DataTypeFloat32 {
		return Tensor{}, errors.Errorf("output %q is %s, expected float32", name, t.DataType())
	}
	return t, nil
}

// Int64 returns the int64 output with the given name.
//
// Arguments:
//   - name: The output node name.
//
// Returns:
//   - Tensor: The output tensor.
//   - error: An error if the output is missing or holds another element type.
func (o Outputs) Int64(name string) (Tensor, error) {
	t, ok := o[name]
	if !ok {
		return Tensor{}, errors.Errorf("output %q not produced", name)
	}
	if t.DataType() != DataTypeInt64 {
		return Tensor{}, errors.Errorf("output %q is %s, expected int64", name, t.DataType())
	}
	return t, nil
}
