package refcode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/domain/entity"
)

// DefaultDigits is the zero-padded width of the sequence suffix
const DefaultDigits = 5

// ErrSequenceExhausted is returned when a year's sequence no longer fits the suffix width
var ErrSequenceExhausted = errors.New("reference code sequence exhausted")

// Generator mints codes of the form PREFIX-YYYY-NNNNN.
// The suffix is fixed width so string order matches generation order within a type.
type Generator struct {
	sequencer port.CodeSequencer
	digits    int
	now       func() time.Time
}

// Option configures the generator
type Option func(*Generator)

// WithDigits sets the suffix width
func WithDigits(digits int) Option {
	return func(g *Generator) {
		if digits > 0 {
			g.digits = digits
		}
	}
}

// WithClock overrides the time source used for the year component
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a code generator over a persisted sequence
func NewGenerator(sequencer port.CodeSequencer, opts ...Option) *Generator {
	g := &Generator{
		sequencer: sequencer,
		digits:    DefaultDigits,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NextCode reserves the next code for the request type
func (g *Generator) NextCode(ctx context.Context, t entity.RequestType) (string, error) {
	if !t.IsValid() {
		return "", fmt.Errorf("unknown request type: %s", t)
	}

	year := g.now().Year()
	seq, err := g.sequencer.Next(ctx, t, year)
	if err != nil {
		return "", fmt.Errorf("failed to advance %s sequence for %d: %w", t.Prefix(), year, err)
	}
	if seq <= 0 {
		return "", fmt.Errorf("sequencer returned non-positive value %d", seq)
	}
	if seq > int64(math.Pow10(g.digits))-1 {
		return "", fmt.Errorf("%w: %s-%d reached %d", ErrSequenceExhausted, t.Prefix(), year, seq)
	}

	return Format(t, year, seq, g.digits), nil
}

// Format renders a reference code
func Format(t entity.RequestType, year int, seq int64, digits int) string {
	return fmt.Sprintf("%s-%04d-%0*d", t.Prefix(), year, digits, seq)
}
