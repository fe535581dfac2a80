package platform

import "sync"

// replySlot holds the response a bus target hands out on reads. Each write
// opens a new generation and empties the slot; only the transaction of the
// current generation may fill it, so a reply that arrives after its read
// timed out is never served for a later write.
type replySlot struct {
	mu  sync.Mutex
	gen uint32
	out []byte
}

// begin empties the slot for a new write and returns its generation.
func (r *replySlot) begin() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.out = nil
	return r.gen
}

// set stores out if gen is still current and reports whether it did.
func (r *replySlot) set(gen uint32, out []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	r.out = out
	return true
}

// get returns the current response, nil while the write is unanswered.
func (r *replySlot) get() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}
