// Package inference is the thin contract over an external tensor runtime:
// load a model, run it against a Mel tensor, report whether a model is
// loaded. The contract is a small capability-set interface so the
// protection engine can compile and test against a pure stub
// implementation, with the native ONNX Runtime backend swapped in at build
// time via the onnx tag.
package inference

// Adapter is the capability set the protection engine depends on. All
// methods must be safe to call without the caller doing I/O on the audio
// thread except where documented.
type Adapter interface {
	// LoadModel loads (or replaces) the active model from path. It may
	// perform blocking file I/O; callers must invoke it off the audio
	// thread. Returns false on any failure; the provided implementations
	// replace any prior model unconditionally.
	LoadModel(path string) bool

	// Run copies mel into the model's input, invokes the runtime, and
	// copies the first output tensor into *out (resized to fit). Returns
	// false — leaving *out untouched — if no model is loaded, mel is empty,
	// or the runtime reports an error. Must not perform I/O.
	Run(mel []float32, out *[]float32) bool

	// IsLoaded reports whether a model is currently loaded.
	IsLoaded() bool
}

// NewDefaultAdapter returns the best backend compiled into this build: the
// ONNX Runtime adapter when built with the onnx tag, the stub otherwise.
func NewDefaultAdapter() Adapter {
	if NativeAvailable() {
		return Adapter(NewONNXAdapter())
	}
	return NewStubAdapter()
}
