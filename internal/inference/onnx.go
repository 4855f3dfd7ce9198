//go:build onnx

package inference

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX Runtime environment is process-wide, so it is brought up exactly
// once regardless of how many ONNXAdapter instances are constructed.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ONNXAdapter is the real inference backend, running an arbitrary model file
// through ONNX Runtime via github.com/yalue/onnxruntime_go. It implements
// Adapter.
type ONNXAdapter struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	loaded  bool
}

// NativeAvailable reports that the real ONNX Runtime backend is compiled in.
func NativeAvailable() bool { return true }

// NewONNXAdapter returns an unloaded ONNXAdapter, initialising the shared
// ONNX Runtime environment on first use.
func NewONNXAdapter() *ONNXAdapter {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	return &ONNXAdapter{}
}

// LoadModel replaces the active session with one built from path. Any prior
// session is destroyed. Returns false on any failure (missing runtime
// environment, malformed model, I/O error).
func (a *ONNXAdapter) LoadModel(path string) bool {
	if ortInitErr != nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	session, err := ort.NewDynamicAdvancedSession(path, []string{"input"}, []string{"output"}, nil)
	if err != nil {
		a.loaded = false
		return false
	}
	if a.session != nil {
		a.session.Destroy()
	}
	a.session = session
	a.loaded = true
	return true
}

// Run copies mel into a [1, len(mel)] input tensor, invokes the session, and
// copies the (runtime-allocated) output tensor into *out. Returns false,
// leaving *out untouched, if no model is loaded, mel is empty, or the
// runtime reports an error.
func (a *ONNXAdapter) Run(mel []float32, out *[]float32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded || a.session == nil || len(mel) == 0 || out == nil {
		return false
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(mel))), mel)
	if err != nil {
		return false
	}
	defer inputTensor.Destroy()

	// A nil output entry asks the session to allocate the output tensor with
	// whatever shape the model produces; we read it back and destroy it once
	// copied.
	outputs := []ort.Value{nil}
	if err := a.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return false
	}
	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok || outTensor == nil {
		return false
	}
	defer outTensor.Destroy()

	*out = append((*out)[:0], outTensor.GetData()...)
	return true
}

// IsLoaded reports whether a session is currently active.
func (a *ONNXAdapter) IsLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// Close releases the ONNX Runtime session, if any. Safe to call multiple
// times.
func (a *ONNXAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session.Destroy()
		a.session = nil
	}
	a.loaded = false
	return nil
}
