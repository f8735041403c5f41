package midi

import (
	"errors"
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ErrPortUnavailable is returned by SendCC while the virtual device is
// down. Sends degrade to no-ops; the scheduler retries the port.
var ErrPortUnavailable = errors.New("midi port unavailable")

// Transport is the port surface the scheduler depends on.
type Transport interface {
	SendCC(channel, cc, value uint8) error
	Available() bool
	Reopen() error
}

// Port is the bidirectional virtual MIDI device. Both directions are
// exposed under one stable name so the host can enumerate the device
// once and bind its mapping to it.
type Port struct {
	name string
	drv  *rtmididrv.Driver

	mu        sync.Mutex
	out       drivers.Out
	in        drivers.In
	send      func(gomidi.Message) error
	stop      func()
	onCC      func(channel, cc, value uint8)
	available bool
}

// OpenPort creates the virtual in and out ports. Failure here is the
// one fatal MIDI condition: without a device at startup there is
// nothing to control.
func OpenPort(name string) (*Port, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midi driver: %w", err)
	}
	p := &Port{name: name, drv: drv}
	if err := p.open(); err != nil {
		drv.Close()
		return nil, err
	}
	return p, nil
}

// open (re)creates both directions. Caller holds p.mu or is exclusive.
func (p *Port) open() error {
	out, err := p.drv.OpenVirtualOut(p.name)
	if err != nil {
		return fmt.Errorf("open virtual out %q: %w", p.name, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		out.Close()
		return fmt.Errorf("create sender for %q: %w", p.name, err)
	}
	in, err := p.drv.OpenVirtualIn(p.name)
	if err != nil {
		out.Close()
		return fmt.Errorf("open virtual in %q: %w", p.name, err)
	}

	p.out = out
	p.send = send
	p.in = in
	p.available = true

	if p.onCC != nil {
		if err := p.listen(); err != nil {
			p.teardown()
			return err
		}
	}
	return nil
}

func (p *Port) listen() error {
	onCC := p.onCC
	stop, err := gomidi.ListenTo(p.in, func(msg gomidi.Message, _ int32) {
		var ch, cc, val uint8
		if msg.GetControlChange(&ch, &cc, &val) {
			onCC(ch, cc, val)
		}
	})
	if err != nil {
		return fmt.Errorf("listen on %q: %w", p.name, err)
	}
	p.stop = stop
	return nil
}

// Listen registers the inbound CC callback and starts delivery. The
// callback survives a Reopen.
func (p *Port) Listen(fn func(channel, cc, value uint8)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCC = fn
	if !p.available {
		return ErrPortUnavailable
	}
	return p.listen()
}

// SendCC emits one control change. A transport error flips the port to
// unavailable; the caller logs and keeps going.
func (p *Port) SendCC(channel, cc, value uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.available {
		return ErrPortUnavailable
	}
	if err := p.send(gomidi.ControlChange(channel, cc, value)); err != nil {
		p.available = false
		return fmt.Errorf("send cc %d on channel %d: %w", cc, channel, err)
	}
	return nil
}

// Available reports whether the device is usable.
func (p *Port) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Reopen tears the dead device down and recreates it.
func (p *Port) Reopen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.available {
		return nil
	}
	p.teardown()
	return p.open()
}

func (p *Port) teardown() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
	if p.in != nil {
		p.in.Close()
		p.in = nil
	}
	if p.out != nil {
		p.out.Close()
		p.out = nil
	}
	p.send = nil
	p.available = false
}

// Close shuts the device and the driver down.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardown()
	return p.drv.Close()
}
