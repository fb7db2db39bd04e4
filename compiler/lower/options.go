package lower

import (
	"tlog.app/go/errors"

	"github.com/slowlang/lower/compiler/tp"
)

type Options struct {
	// WordBits is the machine word width the tagged encoding is sized for.
	WordBits int
}

func DefaultOptions() Options {
	return Options{WordBits: 64}
}

func (o Options) Validate() error {
	if o.WordBits != 32 && o.WordBits != 64 {
		return errors.New("unsupported word size: %d", o.WordBits)
	}

	return nil
}

func (o Options) word() tp.Type {
	return tp.Word(o.WordBits)
}

// inlineMax and inlineMin bound the values a tagged word holds inline:
// the largest and smallest values surviving a one bit left shift.
func (o Options) inlineMax() int64 { return 1<<(o.WordBits-2) - 1 }
func (o Options) inlineMin() int64 { return -1 << (o.WordBits - 2) }
