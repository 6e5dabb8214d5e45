// Package asset keeps the artifacts produced by the editor: spritesheets,
// composed tilemaps and single edited tiles.
package asset

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSpritesheet Kind = "spritesheet"
	KindTilemap     Kind = "tilemap"
	KindTile        Kind = "tile"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSpritesheet, KindTilemap, KindTile:
		return true
	}
	return false
}

// Asset is immutable once appended.
type Asset struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Image     []byte    `json:"image"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is an asset before the repository assigns its identity.
type Draft struct {
	Kind   Kind
	Image  []byte
	Prompt string
}

// Event reports a change of the selected asset. Asset is nil when the
// selection was cleared.
type Event struct {
	Asset *Asset
}

// Store persists appended assets.
type Store interface {
	Put(Asset) error
	List() ([]Asset, error)
}

// Repository is an append-only list of assets, newest first, plus one
// selected slot. Appends swap in a fresh slice so readers never see a
// partial list.
type Repository struct {
	mu       sync.RWMutex
	assets   []Asset
	selected *Asset
	subs     map[int]chan Event
	nextSub  int
	store    Store
	logger   *log.Logger
}

// NewRepository loads any assets already in store. store may be nil.
func NewRepository(store Store, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Default()
	}
	r := &Repository{store: store, logger: logger, subs: make(map[int]chan Event)}
	if store != nil {
		assets, err := store.List()
		if err != nil {
			return nil, fmt.Errorf("asset: load store: %w", err)
		}
		r.assets = assets
	}
	return r, nil
}

// NewID is a UUIDv7: a millisecond timestamp followed by random bits.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (r *Repository) Append(d Draft) (Asset, error) {
	if !d.Kind.Valid() {
		return Asset{}, fmt.Errorf("asset: unknown kind %q", d.Kind)
	}
	a := Asset{
		ID:        NewID(),
		Kind:      d.Kind,
		Image:     d.Image,
		Prompt:    d.Prompt,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		if err := r.store.Put(a); err != nil {
			return Asset{}, fmt.Errorf("asset: persist %s: %w", a.ID, err)
		}
	}
	next := make([]Asset, 0, len(r.assets)+1)
	next = append(next, a)
	r.assets = append(next, r.assets...)
	r.logger.Printf("asset: added %s %s", a.Kind, a.ID)
	return a, nil
}

// Assets returns every asset, most recent first.
func (r *Repository) Assets() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Asset(nil), r.assets...)
}

// Get looks an asset up by id.
func (r *Repository) Get(id string) (Asset, bool) {
	for _, a := range r.Assets() {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// Select overwrites the selected slot and notifies subscribers. Pass nil to
// clear it.
func (r *Repository) Select(a *Asset) {
	var sel *Asset
	if a != nil {
		cp := *a
		sel = &cp
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = sel
	for _, ch := range r.subs {
		publish(ch, Event{Asset: sel})
	}
}

func (r *Repository) Selected() (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected == nil {
		return Asset{}, false
	}
	return *r.selected, true
}

// Subscribe returns a channel of selection changes and a func that ends the
// subscription. A slow reader only ever sees the latest change.
func (r *Repository) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// publish must be called with r.mu held.
func publish(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
