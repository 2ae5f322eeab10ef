package population

// Palette assigns stable display slots to population names within one render
// pass: a monotonic counter plus a name→slot table. It is caller-owned state,
// passed into each pass and reset explicitly at its start, so identical names
// always receive identical slots within a pass.
type Palette struct {
	next  int
	slots map[string]int
}

// NewPalette returns an empty palette.
func NewPalette() *Palette {
	return &Palette{slots: make(map[string]int)}
}

// Reset clears all assignments. Call at the start of each full render pass.
func (p *Palette) Reset() {
	p.next = 0
	p.slots = make(map[string]int)
}

// Slot returns the slot for name, assigning the next free one on first use.
func (p *Palette) Slot(name string) int {
	if s, ok := p.slots[name]; ok {
		return s
	}
	s := p.next
	p.next++
	p.slots[name] = s
	return s
}

// Len returns the number of assigned slots.
func (p *Palette) Len() int { return len(p.slots) }
