package arith

// Contexts is a table of adaptive probability contexts. Each entry packs the
// state index and the most probable symbol as index<<1 | mps; the zero value
// is the initial state.
type Contexts []uint8

// NewContexts allocates n contexts in the initial state.
func NewContexts(n int) Contexts { return make(Contexts, n) }

// Index returns the probability state index of context pos.
func (cx Contexts) Index(pos int) int { return int(cx[pos] >> 1) }

// MPS returns the most probable symbol of context pos.
func (cx Contexts) MPS(pos int) int { return int(cx[pos] & 1) }

// Set seeds context pos with a state index and MPS.
func (cx Contexts) Set(pos, index, mps int) {
	cx[pos] = uint8(index<<1 | mps&1)
}

// Reset returns every context to the initial state.
func (cx Contexts) Reset() { clear(cx) }
