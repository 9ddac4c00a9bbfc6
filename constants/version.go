package constants

const (
	AppName = "moss-status"

	// Edition is the status API path segment for the servers listed here.
	Edition = "bedrock"

	StatusAPIURL  = "https://api.mcstatus.io"
	StatusAPIPath = "/v2/status/" + Edition + "/"
)
