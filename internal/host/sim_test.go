package host

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spawnerx.gg/internal/exchange"
	"spawnerx.gg/internal/exchange/config"
	"spawnerx.gg/internal/protocol"
)

type client struct {
	t   *testing.T
	id  string
	out chan []byte
	sim *Sim
}

func startSim(t *testing.T, simCfg Config) *Sim {
	t.Helper()
	dir := t.TempDir()
	ratesYAML := "mobs:\n  ZOMBIE: 1\n  SKELETON: 3\n"
	if err := os.WriteFile(filepath.Join(dir, config.RatesFile), []byte(ratesYAML), 0o644); err != nil {
		t.Fatalf("write rates: %v", err)
	}
	cfg, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	logger := log.New(os.Stderr, "[host-test] ", 0)
	sim := NewSim(logger, simCfg)
	plugin := exchange.New(logger, cfg, sim, sim, sim)
	sim.AttachPlugin(plugin)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sim.Run(ctx)
	return sim
}

func joinClient(t *testing.T, sim *Sim, name string, admin bool) *client {
	t.Helper()
	out := make(chan []byte, 256)
	resp := make(chan JoinResponse, 1)
	sim.Join() <- JoinRequest{Name: name, Admin: admin, Out: out, Resp: resp}
	jr := <-resp
	c := &client{t: t, id: jr.PlayerID, out: out, sim: sim}
	c.awaitType(protocol.TypeWelcome)
	return c
}

func (c *client) act(a protocol.ActMsg) {
	a.Type = protocol.TypeAct
	a.ProtocolVersion = protocol.Version
	c.sim.Inbox() <- Envelope{PlayerID: c.id, Act: a}
}

// awaitType returns the raw bytes of the next frame of the given type,
// discarding others.
func (c *client) awaitType(typ string) []byte {
	c.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case b := <-c.out:
			base, err := protocol.DecodeBase(b)
			if err != nil {
				c.t.Fatalf("bad frame: %v", err)
			}
			if base.Type == typ {
				return b
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for %s frame", typ)
		}
	}
}

// awaitSurface waits for a SURFACE frame satisfying pred.
func (c *client) awaitSurface(pred func(protocol.SurfaceMsg) bool) protocol.SurfaceMsg {
	c.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case b := <-c.out:
			base, _ := protocol.DecodeBase(b)
			if base.Type != protocol.TypeSurface {
				continue
			}
			var msg protocol.SurfaceMsg
			if err := json.Unmarshal(b, &msg); err != nil {
				c.t.Fatalf("bad surface frame: %v", err)
			}
			if pred(msg) {
				return msg
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for surface frame")
		}
	}
}

func findSlot(msg protocol.SurfaceMsg, pred func(*protocol.ItemView) bool) int {
	for i, v := range msg.Slots {
		if v != nil && pred(v) {
			return i
		}
	}
	return -1
}

func findStorage(msg protocol.SurfaceMsg, name string) int {
	for i, v := range msg.Storage {
		if v != nil && strings.Contains(v.Name, name) {
			return i
		}
	}
	return -1
}

func TestEndToEndExchangeOverChannels(t *testing.T) {
	sim := startSim(t, Config{SpawnerTypes: []string{"ZOMBIE", "SKELETON"}, StarterUnits: 3})
	c := joinClient(t, sim, "steve", false)

	// Open the selection UI.
	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	sel := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})

	skeleton := findSlot(sel, func(v *protocol.ItemView) bool { return v.Name == "SKELETON" })
	if skeleton < 0 {
		t.Fatalf("no SKELETON entry on selection page")
	}
	c.act(protocol.ActMsg{Kind: protocol.ActClick, Slot: skeleton})
	exch := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "SKELETON")
	})

	// Three zombie units at rate 1 match required=3 exactly.
	from := findStorage(exch, "ZOMBIE")
	if from < 0 {
		t.Fatalf("no starter zombie stack in storage: %+v", exch.Storage)
	}
	depositSlot := -1
	for i, v := range exch.Slots {
		if v == nil {
			depositSlot = i
			break
		}
	}
	if depositSlot < 0 {
		t.Fatalf("no open deposit slot")
	}
	c.act(protocol.ActMsg{Kind: protocol.ActDeposit, From: from, Slot: depositSlot})

	ready := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		confirm := findSlot(m, func(v *protocol.ItemView) bool { return v.Name == "Confirm Exchange" })
		return confirm >= 0
	})
	marker := findSlot(ready, func(v *protocol.ItemView) bool { return v.Marker })
	if marker < 0 {
		t.Fatalf("no marker on exchange surface")
	}
	lore := ready.Slots[marker].Lore
	if len(lore) != 2 || lore[0] != "Required: 3" || lore[1] != "Provided: 3" {
		t.Fatalf("marker lore = %v", lore)
	}

	confirm := findSlot(ready, func(v *protocol.ItemView) bool { return v.Name == "Confirm Exchange" })
	c.act(protocol.ActMsg{Kind: protocol.ActClick, Slot: confirm})

	chat := c.awaitType(protocol.TypeChat)
	var chatMsg protocol.ChatMsg
	_ = json.Unmarshal(chat, &chatMsg)
	if !strings.Contains(chatMsg.Text, "completed") {
		t.Fatalf("chat = %q", chatMsg.Text)
	}
	c.awaitType(protocol.TypeClosed)

	// Reopen: storage must now hold the minted skeleton spawner and the
	// zombie stack must be gone.
	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	after := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	if findStorage(after, "ZOMBIE") >= 0 {
		t.Fatalf("consumed zombie stack still in storage")
	}
	if idx := findStorage(after, "1 x SKELETON Spawner"); idx < 0 {
		t.Fatalf("minted spawner missing from storage: %+v", after.Storage)
	}
}

func TestLockedSlotsRejectMutation(t *testing.T) {
	sim := startSim(t, Config{SpawnerTypes: []string{"ZOMBIE"}, StarterUnits: 2})
	c := joinClient(t, sim, "steve", false)

	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	sel := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	zombie := findSlot(sel, func(v *protocol.ItemView) bool { return v.Name == "ZOMBIE" })
	c.act(protocol.ActMsg{Kind: protocol.ActClick, Slot: zombie})
	exch := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "ZOMBIE")
	})

	lockedSlot := findSlot(exch, func(v *protocol.ItemView) bool { return v.Locked })
	c.act(protocol.ActMsg{Kind: protocol.ActDeposit, From: 0, Slot: lockedSlot})
	errFrame := c.awaitType(protocol.TypeError)
	var em protocol.ErrorMsg
	_ = json.Unmarshal(errFrame, &em)
	if em.Code != protocol.ErrLockedSlot {
		t.Fatalf("deposit on locked slot: code=%s", em.Code)
	}

	c.act(protocol.ActMsg{Kind: protocol.ActWithdraw, Slot: lockedSlot})
	errFrame = c.awaitType(protocol.TypeError)
	_ = json.Unmarshal(errFrame, &em)
	if em.Code != protocol.ErrLockedSlot {
		t.Fatalf("withdraw of locked item: code=%s", em.Code)
	}
}

func TestDepositOutOfRangeSlotKeepsItem(t *testing.T) {
	sim := startSim(t, Config{SpawnerTypes: []string{"ZOMBIE"}, StarterUnits: 2})
	c := joinClient(t, sim, "steve", false)

	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	sel := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	zombie := findSlot(sel, func(v *protocol.ItemView) bool { return v.Name == "ZOMBIE" })
	c.act(protocol.ActMsg{Kind: protocol.ActClick, Slot: zombie})
	c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return !strings.Contains(m.Title, "Select")
	})

	for _, slot := range []int{999, -1} {
		c.act(protocol.ActMsg{Kind: protocol.ActDeposit, From: 0, Slot: slot})
		errFrame := c.awaitType(protocol.TypeError)
		var em protocol.ErrorMsg
		_ = json.Unmarshal(errFrame, &em)
		if em.Code != protocol.ErrInvalidTarget {
			t.Fatalf("deposit to slot %d: code=%s", slot, em.Code)
		}
	}

	// The stack must still be in storage, not destroyed.
	c.act(protocol.ActMsg{Kind: protocol.ActClose})
	c.awaitType(protocol.TypeClosed)
	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	after := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	if findStorage(after, "ZOMBIE") < 0 {
		t.Fatalf("rejected deposit destroyed the item: %+v", after.Storage)
	}
}

func TestCloseReturnsDeposits(t *testing.T) {
	sim := startSim(t, Config{SpawnerTypes: []string{"ZOMBIE"}, StarterUnits: 2})
	c := joinClient(t, sim, "steve", false)

	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	sel := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	zombie := findSlot(sel, func(v *protocol.ItemView) bool { return v.Name == "ZOMBIE" })
	c.act(protocol.ActMsg{Kind: protocol.ActClick, Slot: zombie})
	exch := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "ZOMBIE") && !strings.Contains(m.Title, "Select")
	})

	from := findStorage(exch, "ZOMBIE")
	open := -1
	for i, v := range exch.Slots {
		if v == nil {
			open = i
			break
		}
	}
	c.act(protocol.ActMsg{Kind: protocol.ActDeposit, From: from, Slot: open})
	c.awaitSurface(func(m protocol.SurfaceMsg) bool { return findStorage(m, "ZOMBIE") < 0 })

	c.act(protocol.ActMsg{Kind: protocol.ActClose})
	c.awaitType(protocol.TypeClosed)

	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	after := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	if findStorage(after, "ZOMBIE") < 0 {
		t.Fatalf("deposit not returned on close: %+v", after.Storage)
	}
}

func TestMinterDownStillCompletesWithPlaceholder(t *testing.T) {
	sim := startSim(t, Config{SpawnerTypes: []string{"ZOMBIE"}, StarterUnits: 1, MinterDown: true})
	c := joinClient(t, sim, "steve", false)

	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	sel := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	zombie := findSlot(sel, func(v *protocol.ItemView) bool { return v.Name == "ZOMBIE" })
	c.act(protocol.ActMsg{Kind: protocol.ActClick, Slot: zombie})
	exch := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return !strings.Contains(m.Title, "Select")
	})

	from := findStorage(exch, "ZOMBIE")
	open := -1
	for i, v := range exch.Slots {
		if v == nil {
			open = i
			break
		}
	}
	c.act(protocol.ActMsg{Kind: protocol.ActDeposit, From: from, Slot: open})
	ready := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return findSlot(m, func(v *protocol.ItemView) bool { return v.Name == "Confirm Exchange" }) >= 0
	})
	confirm := findSlot(ready, func(v *protocol.ItemView) bool { return v.Name == "Confirm Exchange" })
	c.act(protocol.ActMsg{Kind: protocol.ActClick, Slot: confirm})
	c.awaitType(protocol.TypeClosed)

	c.act(protocol.ActMsg{Kind: protocol.ActCommand, Args: []string{"exchange"}})
	after := c.awaitSurface(func(m protocol.SurfaceMsg) bool {
		return strings.Contains(m.Title, "Select Spawner")
	})
	if findStorage(after, "ZOMBIE Spawner") < 0 {
		t.Fatalf("placeholder spawner missing: %+v", after.Storage)
	}
}
