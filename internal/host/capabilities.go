package host

import (
	"encoding/json"
	"strconv"

	"spawnerx.gg/internal/exchange/item"
	"spawnerx.gg/internal/exchange/surface"
	"spawnerx.gg/internal/protocol"
)

// The sim is the plugin's host capability plus the stacking sibling's oracle,
// registry, and minter. All of these run on the loop goroutine only.

func (s *Sim) OpenSurface(playerID string, g *surface.Grid) {
	p, ok := s.players[playerID]
	if !ok {
		return
	}
	p.open = g
	s.render(p)
}

func (s *Sim) OpenedSurface(playerID string) (*surface.Grid, bool) {
	p, ok := s.players[playerID]
	if !ok || p.open == nil {
		return nil, false
	}
	return p.open, true
}

func (s *Sim) CloseSurface(playerID string) {
	p, ok := s.players[playerID]
	if !ok || p.open == nil {
		return
	}
	p.open = nil
	s.push(p, protocol.ClosedMsg{Type: protocol.TypeClosed, ProtocolVersion: protocol.Version})
}

func (s *Sim) Deliver(playerID string, it item.Item) {
	if p, ok := s.players[playerID]; ok {
		s.store(p, it)
	}
}

func (s *Sim) Message(playerID, text string) {
	if p, ok := s.players[playerID]; ok {
		s.push(p, protocol.ChatMsg{Type: protocol.TypeChat, ProtocolVersion: protocol.Version, Text: text})
	}
}

func (s *Sim) HasPermission(playerID, perm string) bool {
	p, ok := s.players[playerID]
	return ok && p.admin
}

func (s *Sim) Defer(fn func()) { s.defers = append(s.defers, fn) }

// StackSize is the stack oracle: the sim's stacked items carry their size as
// a tag, the way the sibling plugin owns true stack semantics.
func (s *Sim) StackSize(it item.Item) (int, bool) {
	raw, ok := it.Tag(item.TagStackSize)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SpawnerTypes is the oracle's discovery registry.
func (s *Sim) SpawnerTypes() []string {
	out := make([]string, len(s.cfg.SpawnerTypes))
	copy(out, s.cfg.SpawnerTypes)
	return out
}

// Give is the spawner minter: it constructs a properly stacked item and
// delivers it. MinterDown simulates the sibling being unavailable.
func (s *Sim) Give(playerID, mob string, qty int) bool {
	if s.cfg.MinterDown || qty <= 0 {
		return false
	}
	p, ok := s.players[playerID]
	if !ok {
		return false
	}
	s.store(p, s.stackedSpawner(mob, qty))
	return true
}

func itemView(it item.Item) *protocol.ItemView {
	return &protocol.ItemView{
		Kind:   it.Kind,
		Name:   it.Name,
		Count:  it.Count,
		Lore:   it.Lore,
		Locked: it.Locked(),
		Marker: it.IsMarker(),
	}
}

func (s *Sim) render(p *player) {
	if p.open == nil {
		return
	}
	msg := protocol.SurfaceMsg{
		Type:            protocol.TypeSurface,
		ProtocolVersion: protocol.Version,
		Title:           p.open.Title(),
		Rows:            p.open.Rows(),
		Slots:           make([]*protocol.ItemView, p.open.Size()),
		Storage:         make([]*protocol.ItemView, len(p.storage)),
	}
	for i := 0; i < p.open.Size(); i++ {
		if it, ok := p.open.Item(i); ok {
			msg.Slots[i] = itemView(it)
		}
	}
	for i, st := range p.storage {
		if st != nil {
			msg.Storage[i] = itemView(*st)
		}
	}
	s.push(p, msg)
}

func (s *Sim) pushError(p *player, code, text string) {
	s.push(p, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         text,
	})
}

func (s *Sim) push(p *player, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("encode frame: %v", err)
		return
	}
	select {
	case p.out <- b:
	default:
		s.log.Printf("slow client, dropped frame: player=%s", p.id)
	}
}
