// Package fpga drives the capture FPGA: the register bus to the receiver
// chips, the memory-mapped dumper units, and the HPD lines. The raw bus
// transports (I2C, /dev/mem) live outside this module and are consumed
// through the RegisterBus and MemoryBus interfaces.
package fpga

import (
	"time"

	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/metrics"
)

// RegisterBus is byte-level access to a receiver chip behind I2C.
type RegisterBus interface {
	// Get reads size bytes starting at offset.
	Get(offset byte, size int) ([]byte, error)
	// Set writes data starting at offset.
	Set(offset byte, data []byte) error
	// Reset re-initializes the underlying bus adapter.
	Reset() error
}

// MemoryBus is 32-bit access to FPGA-mapped addresses.
type MemoryBus interface {
	Read(addr uint32) (uint32, error)
	Write(addr uint32, value uint32) error
}

// SetMask sets the given bits at addr.
func SetMask(m MemoryBus, addr, mask uint32) error {
	v, err := m.Read(addr)
	if err != nil {
		return err
	}
	return m.Write(addr, v|mask)
}

// ClearMask clears the given bits at addr.
func ClearMask(m MemoryBus, addr, mask uint32) error {
	v, err := m.Read(addr)
	if err != nil {
		return err
	}
	return m.Write(addr, v&^mask)
}

const (
	busRetries      = 3
	busRetryBackoff = 10 * time.Millisecond
)

// RetryingBus wraps a RegisterBus with bounded retry. A failed transfer is
// retried with backoff; the bus adapter is reset before the final attempt.
// Errors that survive all attempts escalate as *BusError.
type RetryingBus struct {
	inner  RegisterBus
	logger logging.Logger
}

// NewRetryingBus wraps bus with the retry policy used for all receiver access.
func NewRetryingBus(bus RegisterBus) *RetryingBus {
	return &RetryingBus{
		inner:  bus,
		logger: logging.GetLogger("fpga"),
	}
}

// Get reads size bytes at offset, retrying transient failures.
func (b *RetryingBus) Get(offset byte, size int) ([]byte, error) {
	var data []byte
	err := b.retry("get", offset, func() error {
		var err error
		data, err = b.inner.Get(offset, size)
		return err
	})
	return data, err
}

// Set writes data at offset, retrying transient failures.
func (b *RetryingBus) Set(offset byte, data []byte) error {
	return b.retry("set", offset, func() error {
		return b.inner.Set(offset, data)
	})
}

// Reset passes through to the underlying adapter.
func (b *RetryingBus) Reset() error {
	return b.inner.Reset()
}

func (b *RetryingBus) retry(op string, offset byte, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < busRetries; attempt++ {
		if attempt > 0 {
			metrics.BusRetry()
			time.Sleep(busRetryBackoff * time.Duration(attempt))
			// Reset the adapter before the last attempt; a wedged bus
			// will not recover on its own.
			if attempt == busRetries-1 {
				if err := b.inner.Reset(); err != nil {
					b.logger.Warn("bus reset failed", "error", err)
				} else {
					b.logger.Info("bus reset", "op", op, "offset", offset)
				}
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		b.logger.Debug("bus transfer failed", "op", op, "offset", offset,
			"attempt", attempt+1, "error", lastErr)
	}
	return &BusError{Op: op, Offset: offset, Attempts: busRetries, Err: lastErr}
}
