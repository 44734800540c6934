package sensor

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const gpioConsumer = "therepi"

// OpenGPIO requests the trigger line as an output (initially low) and the echo
// line as an input on a GPIO character device such as "gpiochip0". The
// returned Driver owns both lines.
func OpenGPIO(chip string, trigger, echo int, opts ...Option) (*Driver, error) {
	trig, err := gpiocdev.RequestLine(chip, trigger,
		gpiocdev.AsOutput(0), gpiocdev.WithConsumer(gpioConsumer))
	if err != nil {
		return nil, fmt.Errorf("sensor: request trigger %s:%d: %w", chip, trigger, err)
	}
	ech, err := gpiocdev.RequestLine(chip, echo,
		gpiocdev.AsInput, gpiocdev.WithConsumer(gpioConsumer))
	if err != nil {
		_ = trig.Close()
		return nil, fmt.Errorf("sensor: request echo %s:%d: %w", chip, echo, err)
	}
	return New(trig, ech, opts...), nil
}
