package constants

// Tone selects the styling of a status label.
type Tone string

const (
	ToneMuted    Tone = "muted"
	ToneNegative Tone = "negative"
	TonePositive Tone = "positive"
)

const (
	LabelChecking = "Checking..."
	LabelUnknown  = "Unknown"
	LabelOffline  = "Offline"
	LabelOnline   = "Online"

	Placeholder = "N/A"

	ErrorPrefix = "Failed to check server status: "
)
