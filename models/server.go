package models

import (
	"net/url"
	"strings"
)

// ServerDescriptor is one entry of the server catalogue. Address is host:port
// and is the key every status lookup uses.
type ServerDescriptor struct {
	Name        string `json:"name" mapstructure:"name"`
	Address     string `json:"address" mapstructure:"address"`
	Description string `json:"description" mapstructure:"description"`
	Category    string `json:"category" mapstructure:"category"`
}

// JoinURL returns the deep link that adds this server to a Bedrock client.
func (s ServerDescriptor) JoinURL() string {
	return "minecraft://?addExternalServer=" + EscapeComponent(s.Name) + "|" + s.Address
}

// componentUnescaper undoes the parts of url.QueryEscape that differ from
// JavaScript's encodeURIComponent.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes s the way encodeURIComponent does: spaces
// become %20 and !'()* are left as is.
func EscapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
