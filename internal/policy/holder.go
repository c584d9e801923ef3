package policy

import (
	"sync/atomic"
)

// Holder publishes the active policy to concurrent readers.
type Holder struct {
	value atomic.Pointer[Policy]
}

// NewHolder starts with p, or with an empty policy when p is nil.
func NewHolder(p *Policy) *Holder {
	h := &Holder{}
	if p == nil {
		p = New(nil)
	}
	h.value.Store(p)
	return h
}

func (h *Holder) Get() *Policy {
	return h.value.Load()
}

// Set makes p active and returns the policy it replaced. The caller must not
// Release the old policy while readers may still hold it.
func (h *Holder) Set(p *Policy) *Policy {
	return h.value.Swap(p)
}
