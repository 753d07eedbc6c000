package fpga

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// I2C_SLAVE from linux/i2c-dev.h.
const i2cSlaveIoctl = 0x0703

// I2CDev is a RegisterBus over a Linux i2c-dev adapter. Each receiver
// chip gets its own I2CDev bound to its slave address. Reset closes and
// reopens the adapter, which clears a wedged controller.
type I2CDev struct {
	path string
	addr int

	mu   sync.Mutex
	file *os.File
}

// OpenI2C opens the adapter at path and binds it to the slave addr.
func OpenI2C(path string, addr int) (*I2CDev, error) {
	d := &I2CDev{path: path, addr: addr}
	if err := d.open(); err != nil {
		return nil, err
	}
	return d, nil
}

// Get reads size bytes starting at the chip register offset.
func (d *I2CDev) Get(offset byte, size int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.file.Write([]byte{offset}); err != nil {
		return nil, fmt.Errorf("i2c 0x%02x: select register 0x%02x: %w", d.addr, offset, err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(d.file, data); err != nil {
		return nil, fmt.Errorf("i2c 0x%02x: read %d bytes at 0x%02x: %w", d.addr, size, offset, err)
	}
	return data, nil
}

// Set writes data starting at the chip register offset.
func (d *I2CDev) Set(offset byte, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, offset)
	buf = append(buf, data...)
	if _, err := d.file.Write(buf); err != nil {
		return fmt.Errorf("i2c 0x%02x: write %d bytes at 0x%02x: %w", d.addr, len(data), offset, err)
	}
	return nil
}

// Reset reopens the adapter.
func (d *I2CDev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
	return d.open()
}

// Close releases the adapter.
func (d *I2CDev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *I2CDev) open() error {
	f, err := os.OpenFile(d.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlaveIoctl, d.addr); err != nil {
		f.Close()
		return fmt.Errorf("i2c %s: bind slave 0x%02x: %w", d.path, d.addr, err)
	}
	d.file = f
	return nil
}
