package web

import (
	"github.com/skyezerfox/moss/models"
	"github.com/skyezerfox/moss/registry"
	"github.com/skyezerfox/moss/status"
)

// Card is the rendered state of one server.
type Card struct {
	Server  models.ServerDescriptor `json:"server"`
	Display status.Display          `json:"display"`
	Pending bool                    `json:"pending"`
	Details *status.Details         `json:"details,omitempty"`
	JoinURL string                  `json:"joinUrl"`
}

// Listing is the whole page. While Error is set the cards are hidden.
// Version is the controller version the listing was built at or after.
type Listing struct {
	Version uint64 `json:"version"`
	Servers []Card `json:"servers"`
	Error   string `json:"error,omitempty"`
}

func buildCard(c *status.Controller, s models.ServerDescriptor) Card {
	pending := c.IsPending(s.Address)
	entry := c.StatusOf(s.Address)

	card := Card{
		Server:  s,
		Display: status.DisplayFor(pending, entry),
		Pending: pending,
		JoinURL: s.JoinURL(),
	}
	if !pending && entry.Kind == status.Resolved && entry.Doc.IsOnline() {
		d := status.Present(entry.Doc)
		card.Details = &d
	}
	return card
}

func buildListing(reg *registry.Registry, c *status.Controller) Listing {
	// Read the version first so a concurrent change can only leave it stale.
	servers := reg.List()
	l := Listing{
		Version: c.Version(),
		Servers: make([]Card, 0, len(servers)),
	}
	for _, s := range servers {
		l.Servers = append(l.Servers, buildCard(c, s))
	}
	l.Error, _ = c.LastError()
	return l
}
