package repository

// BaselineWindow represents the trailing lookback for volume baselines.
type BaselineWindow string

const (
	BW7d  BaselineWindow = "7d"
	BW30d BaselineWindow = "30d"
	BW90d BaselineWindow = "90d"
)

// IsValidBaselineWindow returns true if w is a supported window.
func IsValidBaselineWindow(w BaselineWindow) bool {
	switch w {
	case BW7d, BW30d, BW90d:
		return true
	default:
		return false
	}
}

// DefaultBaselineWindow returns the default lookback window.
func DefaultBaselineWindow() BaselineWindow { return BW30d }

// NormalizeBaselineWindow converts a raw string to a valid window (or default).
func NormalizeBaselineWindow(s string) BaselineWindow {
	if s == "" {
		return DefaultBaselineWindow()
	}
	w := BaselineWindow(s)
	if IsValidBaselineWindow(w) {
		return w
	}
	return DefaultBaselineWindow()
}

// Days returns the window length in days.
func (w BaselineWindow) Days() int {
	switch w {
	case BW7d:
		return 7
	case BW90d:
		return 90
	default:
		return 30
	}
}
