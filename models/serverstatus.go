package models

// ServerStatus is the status document returned by the status API. Every field
// is optional; the API omits or nulls whatever the target server did not report.
type (
	ServerStatus struct {
		Online   *bool    `json:"online"`
		MOTD     *MOTD    `json:"motd"`
		Players  *Players `json:"players"`
		Version  *Version `json:"version"`
		Gamemode *string  `json:"gamemode"`
	}

	MOTD struct {
		Raw   *string `json:"raw"`
		Clean *string `json:"clean"`
	}

	Players struct {
		Online *int `json:"online"`
		Max    *int `json:"max"`
	}

	Version struct {
		Name *string `json:"name"`
	}
)

// IsOnline reports the online flag, treating absence as offline.
func (s *ServerStatus) IsOnline() bool {
	return s != nil && s.Online != nil && *s.Online
}
