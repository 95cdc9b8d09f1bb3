package periph

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Out is a GPIO output pin.
type Out struct {
	pin gpio.PinIO
}

// OpenOut resolves name (e.g. "GPIO17") and drives it low.
func OpenOut(name string) (*Out, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %s out: %w", name, err)
	}
	return &Out{pin: pin}, nil
}

func (o *Out) Write(high bool) error {
	if err := o.pin.Out(gpio.Level(high)); err != nil {
		return fmt.Errorf("gpio %s write: %w", o.pin.Name(), err)
	}
	return nil
}

// In is a GPIO input pin with a pull-down, so an unplugged sensor reads low.
type In struct {
	pin gpio.PinIO
}

// OpenIn resolves name and configures it as input.
func OpenIn(name string) (*In, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("gpio %s in: %w", name, err)
	}
	return &In{pin: pin}, nil
}

func (i *In) Read() (bool, error) {
	return i.pin.Read() == gpio.High, nil
}
