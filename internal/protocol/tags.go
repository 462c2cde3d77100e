package protocol

import "sync"

// maxTag bounds the correlation tag space. Tags wrap long before any
// realistic in-flight count, so reuse cannot collide in practice.
const maxTag = 1_000_000

// TagSource hands out correlation tags for command/response matching.
// Safe for concurrent use.
type TagSource struct {
	mu   sync.Mutex
	last int
}

func NewTagSource() *TagSource {
	return &TagSource{}
}

// Next returns the next tag in [1, maxTag), wrapping at the bound.
func (t *TagSource) Next() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last++
	if t.last >= maxTag {
		t.last = 1
	}
	return t.last
}
