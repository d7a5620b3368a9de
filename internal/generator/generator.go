package generator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	MinLength     = 8
	MaxLength     = 64
	DefaultLength = 16

	Upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lower   = "abcdefghijklmnopqrstuvwxyz"
	Digits  = "0123456789"
	Symbols = "!@#$%^&*()-_=+[]{};:,.<>?/"
)

var ErrNoClasses = errors.New("generator: no character class selected")

// Options selects the length and character classes of a password.
type Options struct {
	Length  int
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
}

// DefaultOptions returns 16 characters from all four classes.
func DefaultOptions() Options {
	return Options{Length: DefaultLength, Upper: true, Lower: true, Digits: true, Symbols: true}
}

func (o Options) classes() []string {
	var cs []string
	if o.Upper {
		cs = append(cs, Upper)
	}
	if o.Lower {
		cs = append(cs, Lower)
	}
	if o.Digits {
		cs = append(cs, Digits)
	}
	if o.Symbols {
		cs = append(cs, Symbols)
	}
	return cs
}

// Generate returns a random password with at least one character from
// every selected class. The caller should wipe the result when done.
func Generate(opts Options) ([]byte, error) {
	if opts.Length < MinLength || opts.Length > MaxLength {
		return nil, fmt.Errorf("generator: length %d outside %d..%d", opts.Length, MinLength, MaxLength)
	}
	classes := opts.classes()
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}

	var alphabet string
	for _, c := range classes {
		alphabet += c
	}

	out := make([]byte, opts.Length)
	for i, c := range classes {
		ch, err := pick(c)
		if err != nil {
			return nil, err
		}
		out[i] = ch
	}
	for i := len(classes); i < len(out); i++ {
		ch, err := pick(alphabet)
		if err != nil {
			return nil, err
		}
		out[i] = ch
	}

	// Fisher-Yates so the guaranteed characters are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return nil, err
		}
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ClassCount returns how many of the four classes occur in secret.
// Bytes outside all classes count as symbols.
func ClassCount(secret []byte) int {
	var upper, lower, digit, other bool
	for _, b := range secret {
		switch {
		case b >= 'A' && b <= 'Z':
			upper = true
		case b >= 'a' && b <= 'z':
			lower = true
		case b >= '0' && b <= '9':
			digit = true
		default:
			other = true
		}
	}
	n := 0
	for _, ok := range []bool{upper, lower, digit, other} {
		if ok {
			n++
		}
	}
	return n
}

func pick(alphabet string) (byte, error) {
	i, err := randInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random number: %w", err)
	}
	return int(v.Int64()), nil
}
