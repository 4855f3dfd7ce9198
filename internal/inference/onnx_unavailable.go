//go:build !onnx

package inference

import "errors"

// ErrNativeUnavailable indicates the module was built without the onnx tag.
var ErrNativeUnavailable = errors.New("inference: onnx backend not available (build with -tags onnx)")

// NativeAvailable reports whether the real ONNX Runtime backend is compiled
// in. It is false in this build.
func NativeAvailable() bool { return false }

// NewONNXAdapter is unavailable in this build and always returns nil. Use
// NativeAvailable to check before calling.
func NewONNXAdapter() Adapter { return nil }
