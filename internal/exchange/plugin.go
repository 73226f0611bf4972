// Package exchange wires the exchange core to a host engine: session
// lifecycle, surface event routing, deferred re-evaluation, the completion
// transaction, commands, and startup mob discovery.
//
// Everything runs on the host's single logical tick thread; the plugin keeps
// no locks and no goroutines of its own.
package exchange

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"spawnerx.gg/internal/exchange/config"
	"spawnerx.gg/internal/exchange/item"
	"spawnerx.gg/internal/exchange/ledger"
	"spawnerx.gg/internal/exchange/session"
	"spawnerx.gg/internal/exchange/stack"
	"spawnerx.gg/internal/exchange/surface"
	"spawnerx.gg/internal/exchange/ui"
)

// PermAdmin gates the reload command.
const PermAdmin = "spawnerx.admin"

// Host is the engine capability the plugin drives. Deliver puts an item into
// the player's personal storage, spilling overflow into the world at the
// player rather than destroying it.
type Host interface {
	OpenSurface(playerID string, g *surface.Grid)
	OpenedSurface(playerID string) (*surface.Grid, bool)
	CloseSurface(playerID string)
	Deliver(playerID string, it item.Item)
	Message(playerID, text string)
	HasPermission(playerID, perm string) bool
	Defer(fn func())
}

// Minter is the sibling plugin's item construction capability. Give reports
// failure instead of erroring; the plugin substitutes a placeholder then.
type Minter interface {
	Give(playerID, mob string, qty int) bool
}

// AuditEntry records one session outcome for the audit sinks.
type AuditEntry struct {
	At       string `json:"at"`
	PlayerID string `json:"player_id"`
	Mob      string `json:"mob"`
	Required int    `json:"required"`
	Provided int    `json:"provided"`
	Outcome  string `json:"outcome"`
}

const (
	OutcomeStarted   = "STARTED"
	OutcomeCompleted = "COMPLETED"
	OutcomeCancelled = "CANCELLED"
)

type AuditSink interface {
	WriteExchange(e AuditEntry) error
}

type Plugin struct {
	log      *log.Logger
	cfg      *config.Manager
	host     Host
	minter   Minter
	counter  *stack.Counter
	sessions *session.Store
	audit    AuditSink
}

func New(logger *log.Logger, cfg *config.Manager, host Host, minter Minter, oracle stack.Oracle) *Plugin {
	return &Plugin{
		log:      logger,
		cfg:      cfg,
		host:     host,
		minter:   minter,
		counter:  stack.NewCounter(oracle),
		sessions: session.NewStore(),
	}
}

// SetAudit attaches an optional outcome sink. The core never depends on it.
func (p *Plugin) SetAudit(sink AuditSink) { p.audit = sink }

func (p *Plugin) Sessions() *session.Store { return p.sessions }

// OpenSelection shows the mob picker page for the player.
func (p *Plugin) OpenSelection(playerID string, page int) {
	p.host.OpenSurface(playerID, ui.SelectionPage(p.cfg.Table(), page))
}

// StartSession fixes the trade terms from the current table snapshot and
// opens the deposit surface. An open session is cancelled first so its items
// go back to the player; put never silently drops a session.
func (p *Plugin) StartSession(playerID, mob string) {
	if _, open := p.sessions.Get(playerID); open {
		p.Cancel(playerID)
	}
	required, ok := p.cfg.Table().Lookup(mob)
	if !ok {
		required = 1
	}
	ses := &session.Session{PlayerID: playerID, Mob: mob, Required: required}
	p.sessions.Put(playerID, ses)

	g, _ := ui.BuildExchange(p.cfg.GUI(), ses.Mob, ses.Required)
	p.host.OpenSurface(playerID, g)
	p.record(ses, 0, OutcomeStarted)
	p.host.Defer(func() { p.Refresh(playerID) })
}

// Refresh is the Open->Open evaluation: recompute provided, flip the confirm
// control, rewrite the marker. A no-op when the session or surface is gone,
// which is exactly what a deferred evaluation after close must be.
func (p *Plugin) Refresh(playerID string) {
	ses, ok := p.sessions.Get(playerID)
	if !ok {
		return
	}
	g, ok := p.host.OpenedSurface(playerID)
	if !ok {
		return
	}
	ev := ledger.Evaluate(g, p.cfg.Table(), p.counter.Effective)
	g.SetItem(p.cfg.GUI().ConfirmSlot, ui.ConfirmButton(p.cfg.GUI(), ledger.ConfirmEnabled(ev.Provided, ses.Required)))
	ui.UpdateMarker(g, ses.Required, ev.Provided)
}

// Cancel returns every unlocked item on the surface to the player and
// destroys the session. It does not close the surface; close paths call it
// and callers on the button path close afterwards.
func (p *Plugin) Cancel(playerID string) {
	ses, ok := p.sessions.Get(playerID)
	if !ok {
		return
	}
	if g, open := p.host.OpenedSurface(playerID); open {
		for slot := 0; slot < g.Size(); slot++ {
			it, filled := g.Item(slot)
			if !filled || it.Locked() {
				continue
			}
			g.Clear(slot)
			p.host.Deliver(playerID, it)
		}
	}
	p.sessions.Remove(playerID)
	p.record(ses, 0, OutcomeCancelled)
}

// TryComplete is the completion transaction. The plan is staged in full
// before anything is removed; after that point every step succeeds because
// minting degrades to a placeholder instead of failing.
func (p *Plugin) TryComplete(playerID string) bool {
	ses, ok := p.sessions.Get(playerID)
	if !ok {
		return false
	}
	g, ok := p.host.OpenedSurface(playerID)
	if !ok {
		return false
	}

	ev := ledger.Evaluate(g, p.cfg.Table(), p.counter.Effective)
	plan, err := ledger.PlanConsumption(ev.Matches, ses.Required)
	if err != nil {
		if sf, isShort := err.(*ledger.ShortfallError); isShort {
			p.host.Message(playerID, fmt.Sprintf(
				"Not enough points: short %d (required %d, provided %d).",
				sf.Gap(), sf.Required, sf.Provided))
		}
		return false
	}

	for _, a := range plan.Actions {
		g.Clear(a.Slot)
		if a.MintBack > 0 {
			p.mint(playerID, a.Mob, a.MintBack)
		}
	}
	p.mint(playerID, ses.Mob, 1)

	p.host.Message(playerID, fmt.Sprintf("Exchange completed for %s!", ses.Mob))
	p.sessions.Remove(playerID)
	p.record(ses, ev.Provided, OutcomeCompleted)
	p.host.CloseSurface(playerID)
	return true
}

// mint hands qty spawner units of mob to the player. A minter failure
// degrades to a plain labeled spawner item; it never aborts the transaction.
func (p *Plugin) mint(playerID, mob string, qty int) {
	if p.minter != nil && p.minter.Give(playerID, mob, qty) {
		return
	}
	p.log.Printf("minter unavailable, delivering placeholder: player=%s mob=%s qty=%d", playerID, mob, qty)
	p.host.Deliver(playerID, item.New(item.KindSpawner, mob+" Spawner", qty))
}

// HandleClick routes a click on an open surface. Mutating clicks are handled
// by the host before this is called; here only structural controls act.
func (p *Plugin) HandleClick(playerID string, slot int) {
	g, open := p.host.OpenedSurface(playerID)
	if !open {
		return
	}
	it, filled := g.Item(slot)

	if _, inSession := p.sessions.Get(playerID); inSession {
		if filled && it.Locked() {
			switch btn, _ := it.Tag(item.TagButton); btn {
			case ui.ButtonConfirmEnabled:
				p.TryComplete(playerID)
				return
			case ui.ButtonCancel:
				p.Cancel(playerID)
				p.host.Message(playerID, "Exchange cancelled.")
				p.host.CloseSurface(playerID)
				return
			}
		}
		p.host.Defer(func() { p.Refresh(playerID) })
		return
	}

	// Selection surface.
	if !filled {
		return
	}
	if mob, ok := it.Tag(item.TagMob); ok {
		p.StartSession(playerID, mob)
		return
	}
	if btn, ok := it.Tag(item.TagButton); ok && (btn == ui.ButtonPrevPage || btn == ui.ButtonNextPage) {
		if pageStr, ok := it.Tag(item.TagPage); ok {
			if page, err := strconv.Atoi(pageStr); err == nil {
				p.OpenSelection(playerID, page)
			}
		}
	}
}

// HandleMutation is called after a deposit, withdraw, or drag settled in the
// surface. Evaluation runs next tick: the host commits the item movement
// after the triggering event, so an inline pass would read stale slots.
func (p *Plugin) HandleMutation(playerID string) {
	p.host.Defer(func() { p.Refresh(playerID) })
}

// HandleClose cancels the session on any close path, player or server
// initiated.
func (p *Plugin) HandleClose(playerID string) {
	p.Cancel(playerID)
}

// SeedMobs auto-populates missing rate entries at rate 1, once at startup.
// The oracle registry wins; a stacker-config fallback covers older oracles.
func (p *Plugin) SeedMobs(reg stack.Registry, fallback func() []string) {
	var mobs []string
	if reg != nil {
		mobs = reg.SpawnerTypes()
	}
	if len(mobs) == 0 && fallback != nil {
		mobs = fallback()
	}
	added := 0
	for _, mob := range mobs {
		if p.cfg.AddMobIfMissing(mob) {
			added++
		}
	}
	if added == 0 {
		return
	}
	if err := p.cfg.Save(); err != nil {
		p.log.Printf("seed mobs: save failed: %v", err)
		return
	}
	p.log.Printf("seeded %d missing mob entries at rate 1", added)
}

// Command handles the in-game command surface. The boolean is the host's
// handled flag, not a process exit code.
func (p *Plugin) Command(playerID string, args []string) bool {
	if len(args) == 0 || args[0] == "exchange" {
		p.OpenSelection(playerID, 0)
		return true
	}
	if args[0] == "reload" {
		if !p.host.HasPermission(playerID, PermAdmin) {
			p.host.Message(playerID, "No permission.")
			return true
		}
		if err := p.cfg.Reload(); err != nil {
			p.log.Printf("reload: %v", err)
		}
		p.host.Message(playerID, "Exchange config reloaded.")
		return true
	}
	p.host.Message(playerID, "Usage: /sx exchange | reload")
	return true
}

// TabComplete mirrors the command surface; reload only shows for admins.
func (p *Plugin) TabComplete(playerID string, args []string) []string {
	if len(args) != 1 {
		return nil
	}
	opts := []string{"exchange"}
	if p.host.HasPermission(playerID, PermAdmin) {
		opts = append(opts, "reload")
	}
	var out []string
	for _, o := range opts {
		if strings.HasPrefix(o, strings.ToLower(args[0])) {
			out = append(out, o)
		}
	}
	return out
}

func (p *Plugin) record(ses *session.Session, provided int, outcome string) {
	if p.audit == nil {
		return
	}
	e := AuditEntry{
		At:       time.Now().UTC().Format(time.RFC3339),
		PlayerID: ses.PlayerID,
		Mob:      ses.Mob,
		Required: ses.Required,
		Provided: provided,
		Outcome:  outcome,
	}
	if err := p.audit.WriteExchange(e); err != nil {
		p.log.Printf("audit write: %v", err)
	}
}
