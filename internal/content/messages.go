package content

import (
	"fmt"

	"github.com/dohr-michael/fakegpt/internal/demo"
)

// NetworkModeMessage announces a newly armed network mode.
func NetworkModeMessage(mode demo.Mode) string {
	switch mode {
	case demo.ModeSlow:
		return "Slow mode activated. Now I'll pretend to struggle with your requests. Acting!"
	case demo.ModeFail:
		return "Fail mode activated. Watch me dramatically fail, then heroically recover!"
	default:
		return "Normal mode activated. Pretending everything works perfectly"
	}
}

// NetworkTestStartMessage is streamed before a network test request.
func NetworkTestStartMessage(mode demo.Mode) string {
	switch mode {
	case demo.ModeSlow:
		return "Testing slow network... Time to practice patience!"
	case demo.ModeFail:
		return "Testing network fail... Preparing for dramatic failure..."
	default:
		return "Testing normal network... (Spoiler: it will work)"
	}
}

// NetworkTestResultMessage summarises a finished network test. attempts
// counts every request made, the successful one included.
func NetworkTestResultMessage(mode demo.Mode, attempts int) string {
	switch mode {
	case demo.ModeSlow:
		return "Slow network test completed! I counted to 2000 Mississippi."
	case demo.ModeFail:
		failures := max(attempts-1, 0)
		return fmt.Sprintf("Failed successfully! %d dramatic %s, then a heroic recovery on attempt %d.",
			failures, plural(failures, "failure", "failures"), attempts)
	default:
		return "Normal network test completed instantly! It's almost like the data was already here..."
	}
}

// NetworkTestErrorMessage is streamed when a test gives up.
func NetworkTestErrorMessage(err error) string {
	return fmt.Sprintf("The network test failed for real this time: %v. Even fake networks have bad days.", err)
}

// ResponseErrorMessage is streamed when a topic answer cannot be fetched.
func ResponseErrorMessage(err error) string {
	return fmt.Sprintf("I tried really hard to look that up, but the pretend network said no: %v", err)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
