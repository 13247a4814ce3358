package monitor

import (
	"fmt"
	"math"
)

// Effectiveness is the percentage of alerts the driver responded to, rounded
// half away from zero. A trip without alerts scores 100.
func Effectiveness(alerts, responses int) int {
	if alerts <= 0 {
		return 100
	}
	return int(math.Round(float64(responses) / float64(alerts) * 100))
}

// FormatElapsed renders seconds as HH:MM:SS.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
