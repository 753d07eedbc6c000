package fpga

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem is a MemoryBus over a mmap'd window of /dev/mem covering the
// FPGA register space. Register access is 32-bit and must not be torn,
// so reads and writes go through atomic loads and stores.
type DevMem struct {
	file *os.File
	base uint32
	data []byte
}

// OpenDevMem maps size bytes of physical memory at base through the
// given device node (normally /dev/mem). base must be page-aligned.
func OpenDevMem(path string, base, size uint32) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), int64(base), int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s at 0x%08x: %w", path, base, err)
	}
	return &DevMem{file: f, base: base, data: data}, nil
}

// Read returns the 32-bit register at addr.
func (m *DevMem) Read(addr uint32) (uint32, error) {
	p, err := m.register(addr)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(p), nil
}

// Write stores value to the 32-bit register at addr.
func (m *DevMem) Write(addr uint32, value uint32) error {
	p, err := m.register(addr)
	if err != nil {
		return err
	}
	atomic.StoreUint32(p, value)
	return nil
}

// Close unmaps the window and closes the device node.
func (m *DevMem) Close() error {
	err := unix.Munmap(m.data)
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	m.data = nil
	return err
}

func (m *DevMem) register(addr uint32) (*uint32, error) {
	if addr < m.base || addr%4 != 0 || int64(addr-m.base)+4 > int64(len(m.data)) {
		return nil, fmt.Errorf("register 0x%08x outside mapped window 0x%08x+0x%x", addr, m.base, len(m.data))
	}
	return (*uint32)(unsafe.Pointer(&m.data[addr-m.base])), nil
}
