package stream

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Speed selects the base interval between revealed units.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

// ParseSpeed validates a speed name. The empty string means SpeedNormal.
func ParseSpeed(s string) (Speed, error) {
	switch Speed(s) {
	case "":
		return SpeedNormal, nil
	case SpeedSlow, SpeedNormal, SpeedFast:
		return Speed(s), nil
	}
	return "", fmt.Errorf("unknown stream speed %q", s)
}

// Config holds the pacing constants.
type Config struct {
	Slow   time.Duration
	Normal time.Duration
	Fast   time.Duration

	SentencePause  float64 // multiplier after . ! ?
	ClausePause    float64 // multiplier after , ; :
	LongWordFactor float64
	LongWordLength int           // runes
	Jitter         time.Duration // upper bound added to plain words
	CodeLineFactor float64
}

// DefaultConfig returns the stock pacing.
func DefaultConfig() Config {
	return Config{
		Slow:           80 * time.Millisecond,
		Normal:         40 * time.Millisecond,
		Fast:           20 * time.Millisecond,
		SentencePause:  4,
		ClausePause:    2,
		LongWordFactor: 1.2,
		LongWordLength: 8,
		Jitter:         10 * time.Millisecond,
		CodeLineFactor: 0.5,
	}
}

func (c Config) speed(s Speed) time.Duration {
	switch s {
	case SpeedSlow:
		return c.Slow
	case SpeedFast:
		return c.Fast
	default:
		return c.Normal
	}
}

// lengthMultiplier shortens the per-unit interval for long content so the
// total reveal time stays bounded.
func lengthMultiplier(runes int) float64 {
	switch {
	case runes > 500:
		return 0.5
	case runes > 200:
		return 0.7
	default:
		return 1
	}
}

// BaseInterval is the per-unit interval for content streamed at speed s.
func (c Config) BaseInterval(s Speed, content string) time.Duration {
	return scale(c.speed(s), lengthMultiplier(utf8.RuneCountInString(content)))
}

// WordDelay is the pause before revealing word. jitter is a sample in [0,1).
func (c Config) WordDelay(word string, base time.Duration, jitter float64) time.Duration {
	w := strings.TrimSpace(word)
	if w == "" {
		return base
	}
	last, _ := utf8.DecodeLastRuneInString(w)
	switch {
	case strings.ContainsRune(".!?", last):
		return scale(base, c.SentencePause)
	case strings.ContainsRune(",;:", last):
		return scale(base, c.ClausePause)
	case utf8.RuneCountInString(w) > c.LongWordLength:
		return scale(base, c.LongWordFactor)
	default:
		return base + scale(c.Jitter, jitter)
	}
}

// CodeLineDelay is the flat pause before each line of a code block.
func (c Config) CodeLineDelay(base time.Duration) time.Duration {
	return scale(base, c.CodeLineFactor)
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(math.Round(float64(d) * f))
}

// isBlank reports whether s holds only whitespace.
func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
