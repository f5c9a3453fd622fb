package netsim

import "time"

// Quality grades a simulated connection by its delay.
type Quality string

const (
	QualityGood Quality = "good"
	QualityFair Quality = "fair"
	QualityPoor Quality = "poor"
)

// ConnectionQuality maps a delay to a quality grade.
func ConnectionQuality(delay time.Duration) Quality {
	switch {
	case delay < 500*time.Millisecond:
		return QualityGood
	case delay < 1500*time.Millisecond:
		return QualityFair
	default:
		return QualityPoor
	}
}
