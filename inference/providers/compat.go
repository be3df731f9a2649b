package providers

import (
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-objectdetection/inference"
)

// CheckCompatibility verifies that a model file declares the expected inputs and outputs.
//
// The environment must already be initialized (see InitializeEnvironment).
//
// Arguments:
//   - path: The ONNX model file.
//   - inputs: The expected inputs.
//   - outputs: The expected outputs.
//
// Returns:
//   - error: An error wrapping inference.ErrIncompatibleModel if the file cannot be read as an
//     ONNX model or a tensor is missing or mismatched.
func CheckCompatibility(path string, inputs, outputs []inference.TensorSpec) error {
	in, out, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return errors.Wrapf(inference.ErrIncompatibleModel, "reading %s: %v", path, err)
	}
	if err := matchSpecs("input", in, inputs); err != nil {
		return err
	}
	return matchSpecs("output", out, outputs)
}

var elementTypes = map[inference.DataType]ort.TensorElementDataType{
	inference.DataTypeFloat32: ort.TensorElementDataTypeFloat,
	inference.DataTypeInt64:   ort.TensorElementDataTypeInt64,
}

// matchSpecs checks every spec against the model's declared tensors. Extra model tensors are
// allowed.
func matchSpecs(kind string, infos []ort.InputOutputInfo, specs []inference.TensorSpec) error {
	byName := make(map[string]ort.InputOutputInfo, len(infos))
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
		names = append(names, info.Name)
	}

	for _, spec := range specs {
		info, ok := byName[spec.Name]
		if !ok {
			return errors.Wrapf(inference.ErrIncompatibleModel,
				"missing %s %q (model declares %s)", kind, spec.Name, strings.Join(names, ", "))
		}
		if want := elementTypes[spec.DataType]; info.DataType != want {
			return errors.Wrapf(inference.ErrIncompatibleModel,
				"%s %q has element type %v, expected %s", kind, spec.Name, info.DataType, spec.DataType)
		}
		if !spec.Matches(info.Dimensions) {
			return errors.Wrapf(inference.ErrIncompatibleModel,
				"%s %q has shape %v, expected %s", kind, spec.Name, info.Dimensions, spec)
		}
	}
	return nil
}
