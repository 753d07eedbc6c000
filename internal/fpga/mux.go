package fpga

// Input mux offsets (from IOControlBase). One bit per port selects the
// port into the capture pipeline; a second bank enables the secondary
// pixel path for dual-pixel sources.
const (
	regInputSelect = 0x0c
	regDualEnable  = 0x10
)

// InputMux routes one port's video into the capture pipeline and gates
// the secondary pixel path.
type InputMux struct {
	mem  MemoryBus
	base uint32
	mask uint32
}

// NewInputMux creates the mux driver for the port selected by mask.
func NewInputMux(mem MemoryBus, base, mask uint32) *InputMux {
	return &InputMux{mem: mem, base: base, mask: mask}
}

// Select routes the port into the pipeline.
func (m *InputMux) Select() error {
	if err := m.mem.Write(m.base+regInputSelect, m.mask); err != nil {
		return err
	}
	return nil
}

// SetDualPath enables or disables the secondary pixel path for the port.
func (m *InputMux) SetDualPath(dual bool) error {
	if dual {
		return SetMask(m.mem, m.base+regDualEnable, m.mask)
	}
	return ClearMask(m.mem, m.base+regDualEnable, m.mask)
}
