// Package main is the cgo-exported C-ABI surface over pkg/boundary, built
// with -buildmode=c-shared for non-Go hosts (the hardware hook layer and
// the host-runtime bridge). Exported names mirror the boundary contract one
// for one; string arguments are read as NUL-terminated UTF-8 and byte
// buffers as base+length.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/silenceguard/protect/pkg/boundary"
)

var (
	handleOnce sync.Once
	handle     boundary.Handle
)

func engineHandle() boundary.Handle {
	handleOnce.Do(func() {
		handle = boundary.GetInstance()
	})
	return handle
}

// ProtectionEngine_getInstance constructs the engine singleton and returns
// an opaque nonzero token for it. The token is informational: every other
// entry point resolves the singleton itself, so a stale token can never
// dangle.
//
//export ProtectionEngine_getInstance
func ProtectionEngine_getInstance() C.uintptr_t {
	engineHandle()
	return 1
}

//export ProtectionEngine_pushToBuffer
func ProtectionEngine_pushToBuffer(_ C.uintptr_t, data *C.uint8_t, byteCount C.size_t) {
	if data == nil || byteCount == 0 {
		return
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(data)), int(byteCount))
	boundary.PushToBuffer(engineHandle(), buf)
}

//export ProtectionEngine_shouldIntercept
func ProtectionEngine_shouldIntercept(_ C.uintptr_t) C.int {
	return C.int(boundary.ShouldIntercept(engineHandle()))
}

//export ProtectionEngine_setTestInterceptEnabled
func ProtectionEngine_setTestInterceptEnabled(_ C.uintptr_t, enabled C.int) {
	boundary.SetTestInterceptEnabled(engineHandle(), int(enabled))
}

//export ProtectionEngine_updateConfig
func ProtectionEngine_updateConfig(_ C.uintptr_t, text *C.char) {
	if text == nil {
		return
	}
	boundary.UpdateConfig(engineHandle(), C.GoString(text))
}

//export ProtectionEngine_markFalsePositive
func ProtectionEngine_markFalsePositive(_ C.uintptr_t, word *C.char, timestamp C.int64_t) {
	boundary.MarkFalsePositive(engineHandle(), C.GoString(word), int64(timestamp))
}

//export ProtectionEngine_loadModel
func ProtectionEngine_loadModel(_ C.uintptr_t, path *C.char) C.int {
	if path == nil {
		return 0
	}
	if boundary.LoadModel(engineHandle(), C.GoString(path)) {
		return 1
	}
	return 0
}

//export ProtectionEngine_processMask
func ProtectionEngine_processMask(_ C.uintptr_t, buf *C.int16_t, frames C.size_t) {
	if buf == nil || frames == 0 {
		return
	}
	boundary.ProcessMask(engineHandle(), unsafe.Slice((*int16)(unsafe.Pointer(buf)), int(frames)))
}

//export AudioInjector_applyBeep
func AudioInjector_applyBeep(buf *C.int16_t, frames C.size_t) {
	if buf == nil || frames == 0 {
		return
	}
	boundary.ApplyBeep(unsafe.Slice((*int16)(unsafe.Pointer(buf)), int(frames)))
}

//export AudioInjector_applyCrossFade
func AudioInjector_applyCrossFade(buf *C.int16_t, frames, crossFadeFrames C.size_t) {
	if buf == nil || frames == 0 {
		return
	}
	boundary.ApplyCrossFade(unsafe.Slice((*int16)(unsafe.Pointer(buf)), int(frames)), int(crossFadeFrames))
}

//export AudioInjector_processWithRingBuffer
func AudioInjector_processWithRingBuffer(buf *C.int16_t, frames, crossFadeFrames C.size_t) {
	if buf == nil || frames == 0 {
		return
	}
	boundary.ProcessWithRingBuffer(unsafe.Slice((*int16)(unsafe.Pointer(buf)), int(frames)), int(crossFadeFrames))
}

// variantStrings holds the C copies of the most recent variant lookup
// results. They stay valid until the next ConfMatrix_load, matching the
// lifetime the boundary contract documents for variant strings.
var (
	variantMu      sync.Mutex
	variantStrings []*C.char
)

func freeVariantStrings() {
	for _, s := range variantStrings {
		C.free(unsafe.Pointer(s))
	}
	variantStrings = nil
}

//export ConfMatrix_load
func ConfMatrix_load(path *C.char) C.int {
	if path == nil {
		return 0
	}
	variantMu.Lock()
	defer variantMu.Unlock()
	freeVariantStrings()
	return C.int(boundary.LoadConfusionMatrix(C.GoString(path)))
}

//export ConfMatrix_getPhonemeVariants
func ConfMatrix_getPhonemeVariants(target *C.char, outVariants **C.char, maxOut C.int) C.int {
	if target == nil || outVariants == nil || maxOut <= 0 {
		return 0
	}
	vs := boundary.GetPhonemeVariants(C.GoString(target), int(maxOut))
	if len(vs) == 0 {
		return 0
	}
	variantMu.Lock()
	defer variantMu.Unlock()
	out := unsafe.Slice(outVariants, int(maxOut))
	for i, v := range vs {
		cs := C.CString(v)
		variantStrings = append(variantStrings, cs)
		out[i] = cs
	}
	return C.int(len(vs))
}

//export ConfMatrix_calculatePhonemeSimilarity
func ConfMatrix_calculatePhonemeSimilarity(a *C.float, lenA C.int, b *C.float, lenB C.int) C.float {
	var sa, sb []float32
	if a != nil && lenA > 0 {
		sa = unsafe.Slice((*float32)(unsafe.Pointer(a)), int(lenA))
	}
	if b != nil && lenB > 0 {
		sb = unsafe.Slice((*float32)(unsafe.Pointer(b)), int(lenB))
	}
	return C.float(boundary.CalculatePhonemeSimilarity(sa, sb))
}

//export ConfMatrix_stringSimilarity
func ConfMatrix_stringSimilarity(a, b *C.char) C.float {
	return C.float(boundary.StringSimilarity(C.GoString(a), C.GoString(b)))
}

func main() {}
