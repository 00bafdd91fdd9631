package roundtrip

import (
	"errors"
	"fmt"
)

// Option is an option for creating a Harness.
type Option func(*options) error

// options retains accumulated state of multiple options.
type options struct {
	levelMin, levelMax int
	destSize           bool
	refs               []reference
}

type reference struct {
	name string
	d    Decompressor
}

func (o *options) setDefault(c Codec) {
	min, max := c.Levels()
	_, ok := c.(DestSizeCodec)
	*o = options{
		levelMin: min,
		levelMax: max,
		destSize: ok,
	}
}

// WithReference adds a reference decoder.
// Every block the codec produces must also decode correctly with d.
// Multiple references can be added.
func WithReference(name string, d Decompressor) Option {
	return func(o *options) error {
		if d == nil {
			return errors.New("reference decoder is nil")
		}
		if name == "" {
			return errors.New("reference decoder must be named")
		}
		for _, r := range o.refs {
			if r.name == name {
				return fmt.Errorf("duplicate reference decoder %q", name)
			}
		}
		o.refs = append(o.refs, reference{name: name, d: d})
		return nil
	}
}

// WithLevelRange restricts the levels that are derived from input.
// The range must be within the levels of the codec.
func WithLevelRange(min, max int) Option {
	return func(o *options) error {
		if min > max {
			return fmt.Errorf("level range [%d, %d] is empty", min, max)
		}
		o.levelMin, o.levelMax = min, max
		return nil
	}
}

// WithDestSize enables or disables the fixed destination size path.
// It is enabled by default when the codec is a DestSizeCodec.
func WithDestSize(b bool) Option {
	return func(o *options) error {
		o.destSize = b
		return nil
	}
}
