package status

import (
	"github.com/skyezerfox/moss/constants"
	"github.com/skyezerfox/moss/models"
)

// Display is the status label of one server card.
type Display struct {
	Label string         `json:"label"`
	Tone  constants.Tone `json:"tone"`
}

// DisplayFor maps controller state for one address to its label.
func DisplayFor(pending bool, e Entry) Display {
	switch {
	case pending || e.Kind == Pending:
		return Display{Label: constants.LabelChecking, Tone: constants.ToneMuted}
	case e.Kind != Resolved || e.Doc == nil:
		return Display{Label: constants.LabelUnknown, Tone: constants.ToneMuted}
	case e.Doc.IsOnline():
		return Display{Label: constants.LabelOnline, Tone: constants.TonePositive}
	default:
		return Display{Label: constants.LabelOffline, Tone: constants.ToneNegative}
	}
}

// Details is a status document with placeholders filled in.
type Details struct {
	Online        bool   `json:"online"`
	MOTD          string `json:"motd"`
	PlayersOnline int    `json:"playersOnline"`
	PlayersMax    int    `json:"playersMax"`
	Version       string `json:"version"`
	Gamemode      string `json:"gamemode"`
}

// Present flattens doc, substituting "N/A" for missing or empty strings and 0
// for missing player counts.
func Present(doc *models.ServerStatus) Details {
	d := Details{
		MOTD:     constants.Placeholder,
		Version:  constants.Placeholder,
		Gamemode: constants.Placeholder,
	}
	if doc == nil {
		return d
	}

	d.Online = doc.IsOnline()
	if doc.MOTD != nil {
		d.MOTD = orPlaceholder(doc.MOTD.Clean)
	}
	if doc.Players != nil {
		d.PlayersOnline = orZero(doc.Players.Online)
		d.PlayersMax = orZero(doc.Players.Max)
	}
	if doc.Version != nil {
		d.Version = orPlaceholder(doc.Version.Name)
	}
	d.Gamemode = orPlaceholder(doc.Gamemode)
	return d
}

func orPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return constants.Placeholder
	}
	return *s
}

func orZero(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
