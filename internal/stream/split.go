package stream

import (
	"regexp"
	"strings"
	"time"
)

const fence = "```"

var fenceRe = regexp.MustCompile("(?s)```.*?```")

// unit is one revealed chunk and the pause that precedes it.
type unit struct {
	text  string
	delay time.Duration
}

type piece struct {
	text string
	code bool
}

// splitPieces partitions content into prose words and code lines. Joining
// the texts of the result yields content unchanged.
func splitPieces(content string) []piece {
	var out []piece
	if strings.Contains(content, fence) {
		last := 0
		for _, loc := range fenceRe.FindAllStringIndex(content, -1) {
			out = append(out, words(content[last:loc[0]])...)
			out = append(out, lines(content[loc[0]:loc[1]])...)
			last = loc[1]
		}
		out = append(out, words(content[last:])...)
	} else {
		out = words(content)
	}
	return mergeBlank(out)
}

// words splits on single spaces; every word after the first keeps its
// leading space.
func words(s string) []piece {
	return cut(s, " ", false)
}

// lines splits on newlines; every line after the first keeps its leading
// newline.
func lines(s string) []piece {
	return cut(s, "\n", true)
}

func cut(s, sep string, code bool) []piece {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]piece, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p == "" {
			continue
		}
		out = append(out, piece{text: p, code: code})
	}
	return out
}

// mergeBlank folds whitespace-only pieces into the piece that follows them,
// or into the last piece when nothing follows.
func mergeBlank(in []piece) []piece {
	out := make([]piece, 0, len(in))
	pending := ""
	for _, p := range in {
		if isBlank(p.text) {
			pending += p.text
			continue
		}
		p.text = pending + p.text
		pending = ""
		out = append(out, p)
	}
	if pending != "" {
		if len(out) > 0 {
			out[len(out)-1].text += pending
		} else {
			out = append(out, piece{text: pending})
		}
	}
	return out
}

// plan turns content into timed units. jitter returns samples in [0,1).
func (c Config) plan(content string, speed Speed, jitter func() float64) []unit {
	base := c.BaseInterval(speed, content)
	pieces := splitPieces(content)
	units := make([]unit, len(pieces))
	for i, p := range pieces {
		var d time.Duration
		if p.code {
			d = c.CodeLineDelay(base)
		} else {
			d = c.WordDelay(p.text, base, jitter())
		}
		units[i] = unit{text: p.text, delay: d}
	}
	return units
}
