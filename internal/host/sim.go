// Package host is an in-memory stand-in for the game engine the exchange
// plugin embeds into: players with bounded personal storage, one openable
// surface each, chat delivery, and the stacking sibling's oracle and minter.
//
// Sim is a single-threaded authoritative loop in the style of an
// authoritative game server: all state is touched only from the Run
// goroutine, fed by channels. Deferred work queued while handling an event
// runs immediately after that event settles and before the next one, so
// evaluations never reorder around the player's subsequent actions.
package host

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"spawnerx.gg/internal/exchange/item"
	"spawnerx.gg/internal/exchange/surface"
	"spawnerx.gg/internal/protocol"
)

// StorageSlots is the size of a player's personal storage.
const StorageSlots = 36

// Plugin is the slice of the exchange plugin the sim drives.
type Plugin interface {
	Command(playerID string, args []string) bool
	HandleClick(playerID string, slot int)
	HandleMutation(playerID string)
	HandleClose(playerID string)
}

type Config struct {
	// SpawnerTypes is what the stacking sibling's registry reports.
	SpawnerTypes []string
	// StarterUnits seeds joining players with one stacked spawner item per
	// registry type holding this many units. Zero seeds nothing.
	StarterUnits int
	// MinterDown simulates the sibling plugin refusing to mint.
	MinterDown bool
	// OutBuffer is the per-player outbound frame buffer.
	OutBuffer int
}

type JoinRequest struct {
	Name  string
	Admin bool
	Out   chan []byte
	Resp  chan JoinResponse
}

type JoinResponse struct {
	PlayerID string
}

type Envelope struct {
	PlayerID string
	Act      protocol.ActMsg
}

type player struct {
	id    string
	name  string
	admin bool

	storage []*item.Item
	ground  []item.Item
	open    *surface.Grid

	out chan []byte
}

type Sim struct {
	log *log.Logger
	cfg Config

	plugin  Plugin
	players map[string]*player

	inbox chan Envelope
	join  chan JoinRequest
	leave chan string

	defers  []func()
	nextNum int
}

func NewSim(logger *log.Logger, cfg Config) *Sim {
	if cfg.OutBuffer <= 0 {
		cfg.OutBuffer = 64
	}
	return &Sim{
		log:     logger,
		cfg:     cfg,
		players: make(map[string]*player),
		inbox:   make(chan Envelope, 256),
		join:    make(chan JoinRequest),
		leave:   make(chan string, 16),
	}
}

// AttachPlugin must be called before Run. Two-phase because the plugin takes
// the sim as its host capability.
func (s *Sim) AttachPlugin(p Plugin) { s.plugin = p }

func (s *Sim) Inbox() chan<- Envelope     { return s.inbox }
func (s *Sim) Join() chan<- JoinRequest   { return s.join }
func (s *Sim) Leave() chan<- string       { return s.leave }

// Run owns all sim state until ctx is cancelled.
func (s *Sim) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jr := <-s.join:
			s.handleJoin(jr)
		case id := <-s.leave:
			s.handleLeave(id)
		case env := <-s.inbox:
			s.handleAct(env)
		}
		s.drainDefers()
	}
}

func (s *Sim) handleJoin(jr JoinRequest) {
	s.nextNum++
	id := fmt.Sprintf("P%03d", s.nextNum)
	p := &player{
		id:      id,
		name:    jr.Name,
		admin:   jr.Admin,
		storage: make([]*item.Item, StorageSlots),
		out:     jr.Out,
	}
	if s.cfg.StarterUnits > 0 {
		for _, mob := range s.cfg.SpawnerTypes {
			it := s.stackedSpawner(mob, s.cfg.StarterUnits)
			s.store(p, it)
		}
	}
	s.players[id] = p
	jr.Resp <- JoinResponse{PlayerID: id}
	s.push(p, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        id,
	})
}

func (s *Sim) handleLeave(id string) {
	p, ok := s.players[id]
	if !ok {
		return
	}
	if p.open != nil {
		s.plugin.HandleClose(id)
		p.open = nil
	}
	delete(s.players, id)
}

func (s *Sim) handleAct(env Envelope) {
	p, ok := s.players[env.PlayerID]
	if !ok {
		return
	}
	act := env.Act
	switch act.Kind {
	case protocol.ActCommand:
		s.plugin.Command(p.id, act.Args)
	case protocol.ActClick:
		if p.open == nil {
			s.pushError(p, protocol.ErrNoSurface, "no open surface")
			return
		}
		s.plugin.HandleClick(p.id, act.Slot)
	case protocol.ActDeposit:
		s.deposit(p, act.From, act.Slot)
	case protocol.ActWithdraw:
		s.withdraw(p, act.Slot)
	case protocol.ActClose:
		if p.open != nil {
			s.plugin.HandleClose(p.id)
			s.CloseSurface(p.id)
		}
	default:
		s.pushError(p, protocol.ErrBadRequest, "unknown act kind "+act.Kind)
	}
}

// deposit moves a storage item onto an open, unlocked, empty surface slot.
func (s *Sim) deposit(p *player, from, slot int) {
	if p.open == nil {
		s.pushError(p, protocol.ErrNoSurface, "no open surface")
		return
	}
	if from < 0 || from >= len(p.storage) || p.storage[from] == nil {
		s.pushError(p, protocol.ErrInvalidTarget, "empty storage slot")
		return
	}
	if slot < 0 || slot >= p.open.Size() {
		s.pushError(p, protocol.ErrInvalidTarget, "slot out of range")
		return
	}
	if it, ok := p.open.Item(slot); ok && it.Locked() {
		s.pushError(p, protocol.ErrLockedSlot, "slot is locked")
		return
	}
	if !p.open.Empty(slot) {
		s.pushError(p, protocol.ErrInvalidTarget, "slot occupied")
		return
	}
	it := *p.storage[from]
	p.storage[from] = nil
	p.open.SetItem(slot, it)
	s.plugin.HandleMutation(p.id)
}

// withdraw pulls an unlocked surface item back into storage.
func (s *Sim) withdraw(p *player, slot int) {
	if p.open == nil {
		s.pushError(p, protocol.ErrNoSurface, "no open surface")
		return
	}
	it, ok := p.open.Item(slot)
	if !ok {
		s.pushError(p, protocol.ErrInvalidTarget, "empty slot")
		return
	}
	if it.Locked() {
		s.pushError(p, protocol.ErrLockedSlot, "slot is locked")
		return
	}
	p.open.Clear(slot)
	s.store(p, it)
	s.plugin.HandleMutation(p.id)
}

// drainDefers runs deferred work queued during the event just handled,
// including work those tasks queue in turn, then re-renders open surfaces.
func (s *Sim) drainDefers() {
	for len(s.defers) > 0 {
		fn := s.defers[0]
		s.defers = s.defers[1:]
		fn()
	}
	for _, p := range s.players {
		if p.open != nil {
			s.render(p)
		}
	}
}

// store puts an item into the first free storage slot, spilling to the
// ground at the player when storage is full. Nothing is ever destroyed.
func (s *Sim) store(p *player, it item.Item) {
	for i := range p.storage {
		if p.storage[i] == nil {
			c := it.Clone()
			p.storage[i] = &c
			return
		}
	}
	p.ground = append(p.ground, it.Clone())
	s.log.Printf("storage full, dropped at player: player=%s item=%s", p.id, it.Name)
}

func (s *Sim) stackedSpawner(mob string, units int) item.Item {
	it := item.New(item.KindSpawner, fmt.Sprintf("%d x %s Spawner", units, mob), 1)
	return it.WithTag(item.TagStackSize, strconv.Itoa(units))
}

// GroundItems exposes spilled items for inspection from the loop goroutine.
func (s *Sim) GroundItems(playerID string) []item.Item {
	if p, ok := s.players[playerID]; ok {
		return p.ground
	}
	return nil
}
