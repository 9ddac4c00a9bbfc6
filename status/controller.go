package status

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/skyezerfox/moss/constants"
)

// Controller owns the address -> Entry mapping, the set of in-flight
// addresses and the single global error slot.
//
// Requests for the same address are not deduplicated. Whichever response is
// written last wins, and the first one to finish clears the pending mark.
type Controller struct {
	sync.Mutex

	fetcher  Fetcher
	entries  map[string]Entry
	inFlight map[string]struct{}
	lastErr  string

	listeners map[int]func()
	nextID    int
	version   uint64

	wg sync.WaitGroup
}

// NewController creates a controller that fetches through f.
func NewController(f Fetcher) *Controller {
	return &Controller{
		fetcher:   f,
		entries:   make(map[string]Entry),
		inFlight:  make(map[string]struct{}),
		listeners: make(map[int]func()),
	}
}

// RequestStatus marks address as pending and fetches its status in the
// background. It never blocks on the network.
func (c *Controller) RequestStatus(address string) {
	if address == "" {
		log.Warn().Msg("Ignoring status request without address")
		return
	}

	c.Lock()
	c.inFlight[address] = struct{}{}
	c.lastErr = ""
	c.Unlock()
	c.notify()

	id := uuid.New().String()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.fetch(id, address)
	}()
}

func (c *Controller) fetch(id, address string) {
	log.Debug().Str("addr", address).Str("request_id", id).Msg("Checking server status")
	start := time.Now()

	doc, err := c.fetcher.Fetch(context.Background(), address)

	c.Lock()
	delete(c.inFlight, address)
	if err != nil {
		c.entries[address] = Entry{Kind: Unknown}
		c.lastErr = constants.ErrorPrefix + err.Error()
	} else {
		c.entries[address] = Entry{Kind: Resolved, Doc: doc}
	}
	c.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("addr", address).Str("request_id", id).Dur("duration", time.Since(start)).Msg("Status check failed")
	} else {
		log.Info().Str("addr", address).Str("request_id", id).Bool("online", doc.IsOnline()).Dur("duration", time.Since(start)).Msg("Status check finished")
	}
	c.notify()
}

// StatusOf returns the entry for address. Addresses never requested are
// Unknown. While a request is in flight the entry is Pending and Doc keeps the
// previously fetched document, if any.
func (c *Controller) StatusOf(address string) Entry {
	c.Lock()
	defer c.Unlock()
	e := c.entries[address]
	if _, ok := c.inFlight[address]; ok {
		e.Kind = Pending
	}
	return e
}

// IsPending reports whether a request for address is in flight.
func (c *Controller) IsPending(address string) bool {
	c.Lock()
	defer c.Unlock()
	_, ok := c.inFlight[address]
	return ok
}

// LastError returns the most recent failure message, if any.
func (c *Controller) LastError() (string, bool) {
	c.Lock()
	defer c.Unlock()
	return c.lastErr, c.lastErr != ""
}

// ClearError empties the global error slot. Entries are left untouched.
func (c *Controller) ClearError() {
	c.Lock()
	c.lastErr = ""
	c.Unlock()
	c.notify()
}

// Display returns the label and tone for address.
func (c *Controller) Display(address string) Display {
	c.Lock()
	defer c.Unlock()
	_, pending := c.inFlight[address]
	return DisplayFor(pending, c.entries[address])
}

// Subscribe registers fn to be called after every state change. The returned
// func removes it.
func (c *Controller) Subscribe(fn func()) func() {
	c.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.Unlock()

	return func() {
		c.Lock()
		delete(c.listeners, id)
		c.Unlock()
	}
}

// Version returns a counter that grows with every state change.
func (c *Controller) Version() uint64 {
	c.Lock()
	defer c.Unlock()
	return c.version
}

// Wait blocks until every in-flight request has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) notify() {
	c.Lock()
	c.version++
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.Unlock()

	for _, fn := range fns {
		fn()
	}
}
