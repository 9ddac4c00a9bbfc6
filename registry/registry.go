package registry

import (
	"fmt"

	"github.com/skyezerfox/moss/models"
)

var defaultServers = []models.ServerDescriptor{
	{
		Name:        "Neo_Babel",
		Address:     "mc.nizaralghifary.my.id:19834",
		Description: "Still Development",
		Category:    "Adventure",
	},
	{
		Name:        "Nzr_Survival",
		Address:     "survival.nizaralghifary.my.id:35768",
		Description: "World Survival Biasa",
		Category:    "Survival",
	},
	{
		Name:        "Pioneer",
		Address:     "pioneer.aternos.me:15757",
		Description: "World Survival Punya Azzam",
		Category:    "Survival",
	},
	{
		Name:        "Survival_2",
		Address:     "survival-2.nizaralghifary.my.id:40993",
		Description: "World Survival Kedua",
		Category:    "Survival",
	},
}

// Default returns a copy of the built-in catalogue used when no servers are
// configured.
func Default() []models.ServerDescriptor {
	out := make([]models.ServerDescriptor, len(defaultServers))
	copy(out, defaultServers)
	return out
}

// Registry is the immutable, ordered server catalogue.
type Registry struct {
	servers []models.ServerDescriptor
	index   map[string]int
}

// New builds a registry from servers, keeping their order. Every entry needs a
// name and an address, and addresses must be unique.
func New(servers []models.ServerDescriptor) (*Registry, error) {
	r := &Registry{
		servers: make([]models.ServerDescriptor, len(servers)),
		index:   make(map[string]int, len(servers)),
	}
	copy(r.servers, servers)

	for i, s := range r.servers {
		if s.Name == "" {
			return nil, fmt.Errorf("server at index %d has no name", i)
		}
		if s.Address == "" {
			return nil, fmt.Errorf("server %s has no address", s.Name)
		}
		if prev, ok := r.index[s.Address]; ok {
			return nil, fmt.Errorf("server %s reuses address %s of server %s", s.Name, s.Address, r.servers[prev].Name)
		}
		r.index[s.Address] = i
	}
	return r, nil
}

// NewDefault returns a registry over the built-in catalogue.
func NewDefault() *Registry {
	r, err := New(defaultServers)
	if err != nil {
		panic(err)
	}
	return r
}

// List returns the servers in configured order. The slice is a copy.
func (r *Registry) List() []models.ServerDescriptor {
	out := make([]models.ServerDescriptor, len(r.servers))
	copy(out, r.servers)
	return out
}

// Lookup finds a server by address.
func (r *Registry) Lookup(address string) (models.ServerDescriptor, bool) {
	i, ok := r.index[address]
	if !ok {
		return models.ServerDescriptor{}, false
	}
	return r.servers[i], true
}

// Len returns the number of servers.
func (r *Registry) Len() int {
	return len(r.servers)
}
