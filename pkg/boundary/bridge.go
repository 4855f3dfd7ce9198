package boundary

// Bridge is the five-method table the host runtime registers against its
// managed-layer Bridge class. It adds no semantics over the handle
// operations; InitInterceptor is a liveness probe that merely ensures the
// engine singleton is constructed.
type Bridge struct {
	h Handle
}

// NewBridge constructs the method table, building the engine singleton in
// the process.
func NewBridge() *Bridge {
	return &Bridge{h: GetInstance()}
}

// UpdateConfig forwards configuration text to the engine.
func (b *Bridge) UpdateConfig(text string) {
	UpdateConfig(b.h, text)
}

// MarkFalsePositive records a reported false positive.
func (b *Bridge) MarkFalsePositive(word string, timestamp int64) {
	MarkFalsePositive(b.h, word, timestamp)
}

// SetTestInterceptEnabled arms or disarms the test override.
func (b *Bridge) SetTestInterceptEnabled(enabled bool) {
	v := 0
	if enabled {
		v = 1
	}
	SetTestInterceptEnabled(b.h, v)
}

// InitInterceptor ensures the engine singleton exists. It is safe to call
// repeatedly.
func (b *Bridge) InitInterceptor() {
	b.h = GetInstance()
}

// LoadModel loads an inference model; must be called off the audio thread.
func (b *Bridge) LoadModel(path string) {
	LoadModel(b.h, path)
}
