package periph

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// maxBright is the top of the APA102 5-bit global brightness field.
const maxBright = 0xff - 0xe0

// Frame is the byte image of one APA102 transfer: a 4-byte zero start frame,
// 4 bytes per pixel and the 0xff stop bytes that clock data through the chain.
type Frame struct {
	n   int
	buf []byte
}

// NewFrame allocates a dark frame for n pixels.
func NewFrame(n int) *Frame {
	stop := (n/2)/8 + 1
	f := &Frame{n: n, buf: make([]byte, 4+n*4+stop)}
	for i := 4 + n*4; i < len(f.buf); i++ {
		f.buf[i] = 0xff
	}
	f.Fill(0, 0, 0, 0)
	return f
}

// Len returns the pixel count.
func (f *Frame) Len() int { return f.n }

// Bytes returns the wire image.
func (f *Frame) Bytes() []byte { return f.buf }

// Fill sets every pixel to r,g,b at brightness a (0..31).
func (f *Frame) Fill(r, g, b, a uint8) {
	if a > maxBright {
		a = maxBright
	}
	for i := 0; i < f.n; i++ {
		s := f.buf[4+i*4:]
		s[0] = 0xe0 + a
		s[1] = b
		s[2] = g
		s[3] = r
	}
}

// brightness5 maps 0..255 onto the 5-bit field, keeping any non-zero level
// visible.
func brightness5(level uint8) uint8 {
	return uint8((int(level)*maxBright + 254) / 255)
}

// APA102 is a strip of APA102 pixels on an SPI port. All pixels show the
// same color.
type APA102 struct {
	port spi.PortCloser
	conn spi.Conn

	mu         sync.Mutex
	r, g, b    uint8
	brightness uint8
	frame      *Frame
}

// OpenAPA102 opens the SPI port ("" for the first one) and connects at hz.
func OpenAPA102(port string, pixels int, hz physic.Frequency) (*APA102, error) {
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("spi open %q: %w", port, err)
	}
	if hz <= 0 {
		hz = 4 * physic.MegaHertz
	}
	c, err := p.Connect(hz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	return &APA102{
		port:       p,
		conn:       c,
		brightness: 255,
		frame:      NewFrame(pixels),
	}, nil
}

func (s *APA102) Len() int { return s.frame.Len() }

func (s *APA102) SetColor(r, g, b uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r, s.g, s.b = r, g, b
}

func (s *APA102) SetBrightness(level uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = level
}

func (s *APA102) Clear() {
	s.SetColor(0, 0, 0)
}

// Show encodes the staged color and pushes the whole chain.
func (s *APA102) Show(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame.Fill(s.r, s.g, s.b, brightness5(s.brightness))
	if err := s.conn.Tx(s.frame.Bytes(), nil); err != nil {
		return fmt.Errorf("spi tx: %w", err)
	}
	return nil
}

// Close blanks the strip and releases the port.
func (s *APA102) Close() error {
	s.mu.Lock()
	s.frame.Fill(0, 0, 0, 0)
	txErr := s.conn.Tx(s.frame.Bytes(), nil)
	s.mu.Unlock()

	if err := s.port.Close(); err != nil {
		return fmt.Errorf("spi close: %w", err)
	}
	if txErr != nil {
		return fmt.Errorf("spi blank: %w", txErr)
	}
	return nil
}
