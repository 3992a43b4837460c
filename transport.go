package epd154

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Transport carries framed command and data transactions to the controller.
// Each call is a complete transaction on its own.
type Transport interface {
	// Command sends a single command byte.
	Command(cmd byte) error
	// Data sends parameter or pixel bytes for the last command.
	Data(data []byte) error
}

// TransportError is returned when a bus write fails. The driver never
// retries; after a TransportError during a refresh the controller RAM is in
// an undefined state and Initialize must be called again.
type TransportError struct {
	Op  string // "command" or "data"
	Cmd byte   // Command being issued or parameterized
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("epd154: %s 0x%02X: %v", e.Op, e.Cmd, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SPITransport is a 4-wire SPI Transport. DC selects command (low) or data
// (high) and CS is pulled low around every transaction.
type SPITransport struct {
	c  conn.Conn   // SPI connection
	dc gpio.PinOut // Data/Command pin
	cs gpio.PinOut // Chip select (optional, nil if driven by the SPI port)
}

// NewSPITransport connects to p at 4MHz, Mode0, 8-bit words.
//
// cs may be nil when the SPI port drives chip select itself.
func NewSPITransport(p spi.Port, dc, cs gpio.PinOut) (*SPITransport, error) {
	if dc == nil || dc == gpio.INVALID {
		return nil, errors.New("epd154: dc pin is required")
	}

	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd154: failed to connect SPI: %w", err)
	}

	if cs != nil {
		if err := cs.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("epd154: failed to release CS: %w", err)
		}
	}
	if err := dc.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("epd154: failed to pull DC low: %w", err)
	}

	return &SPITransport{c: c, dc: dc, cs: cs}, nil
}

// Command implements Transport.
func (t *SPITransport) Command(cmd byte) error {
	return t.frame(gpio.Low, []byte{cmd})
}

// Data implements Transport.
func (t *SPITransport) Data(data []byte) error {
	return t.frame(gpio.High, data)
}

// frame sends b with DC at l, asserting CS for the duration of the transfer.
// CS is released even if the transfer fails.
func (t *SPITransport) frame(l gpio.Level, b []byte) error {
	if err := t.dc.Out(l); err != nil {
		return err
	}
	if t.cs != nil {
		if err := t.cs.Out(gpio.Low); err != nil {
			return err
		}
	}
	err := t.c.Tx(b, nil)
	if t.cs != nil {
		if csErr := t.cs.Out(gpio.High); err == nil {
			err = csErr
		}
	}
	return err
}

func (t *SPITransport) String() string {
	return fmt.Sprintf("%s, dc=%s", t.c, t.dc)
}
