package providers

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// SharedLibraryPathEnv overrides the ONNX Runtime shared library location.
const SharedLibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the shared library for the current platform.
//
// Returns:
//   - string: The value of ONNXRUNTIME_SHARED_LIBRARY_PATH if set, otherwise the bundled
//     library for the platform. Empty if the platform has no bundled library.
func GetSharedLibPath() string {
	if p := os.Getenv(SharedLibraryPathEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.1.21.0.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return ""
}

var envMu sync.Mutex

// InitializeEnvironment loads the ONNX Runtime shared library once per process.
//
// Arguments:
//   - libPath: The shared library to load. Empty uses GetSharedLibPath.
//
// Returns:
//   - error: An error if the library is missing or fails to initialize.
func InitializeEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = GetSharedLibPath()
	}
	if libPath == "" {
		return errors.Errorf("no ONNX Runtime library for %s/%s; set %s",
			runtime.GOOS, runtime.GOARCH, SharedLibraryPathEnv)
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}

	// Point ONNX Runtime to the exact shared library path (overrides default search).
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}
