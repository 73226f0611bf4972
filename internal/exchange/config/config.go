// Package config loads the exchange documents: rates (exchange.yaml) and
// surface appearance (gui.yaml). Missing files and bad values recover to
// hardcoded defaults; a config defect never reaches the player.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"spawnerx.gg/internal/exchange/rates"
)

const (
	RatesFile = "exchange.yaml"
	GUIFile   = "gui.yaml"
)

type ItemSpec struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
}

type GUI struct {
	Title       string `yaml:"title"`
	Rows        int    `yaml:"rows"`
	CancelSlot  int    `yaml:"cancel_slot"`
	ConfirmSlot int    `yaml:"confirm_slot"`

	Filler ItemSpec `yaml:"filler"`
	Items  struct {
		Cancel          ItemSpec `yaml:"cancel"`
		ConfirmEnabled  ItemSpec `yaml:"confirm_enabled"`
		ConfirmDisabled ItemSpec `yaml:"confirm_disabled"`
	} `yaml:"items"`

	// Fallback deposit slots used only when the planner has no content rows
	// to work with.
	InputSlotCandidates []int `yaml:"input_slot_candidates"`
}

type ratesDoc struct {
	Mobs map[string]rates.RawEntry `yaml:"mobs"`
}

func defaultGUI() GUI {
	g := GUI{
		Title:       "Exchange Spawners",
		Rows:        3,
		CancelSlot:  0,
		ConfirmSlot: 8,
		Filler:      ItemSpec{Kind: "BLACK_STAINED_GLASS_PANE", Name: " "},
	}
	g.Items.Cancel = ItemSpec{Kind: "RED_WOOL", Name: "Cancel"}
	g.Items.ConfirmEnabled = ItemSpec{Kind: "GREEN_WOOL", Name: "Confirm Exchange"}
	g.Items.ConfirmDisabled = ItemSpec{Kind: "GRAY_WOOL", Name: "Confirm (not ready)"}
	g.InputSlotCandidates = []int{10, 11, 12, 13, 14, 15}
	return g
}

func (g *GUI) normalize() {
	d := defaultGUI()
	if g.Title == "" {
		g.Title = d.Title
	}
	if g.Rows < 1 || g.Rows > 6 {
		g.Rows = d.Rows
	}
	if g.CancelSlot < 0 {
		g.CancelSlot = d.CancelSlot
	}
	if g.ConfirmSlot < 0 || g.ConfirmSlot == g.CancelSlot {
		g.ConfirmSlot = d.ConfirmSlot
	}
	if g.Filler.Kind == "" {
		g.Filler = d.Filler
	}
	if g.Items.Cancel.Kind == "" {
		g.Items.Cancel = d.Items.Cancel
	}
	if g.Items.ConfirmEnabled.Kind == "" {
		g.Items.ConfirmEnabled = d.Items.ConfirmEnabled
	}
	if g.Items.ConfirmDisabled.Kind == "" {
		g.Items.ConfirmDisabled = d.Items.ConfirmDisabled
	}
	if len(g.InputSlotCandidates) == 0 {
		g.InputSlotCandidates = d.InputSlotCandidates
	}
}

// Manager owns the loaded snapshots. Reload fully replaces them; sessions
// created before a reload keep the required value they captured.
type Manager struct {
	dir string

	gui   GUI
	table *rates.Table
	mobs  map[string]rates.RawEntry
}

// NewManager loads both documents, falling back to defaults per document on
// any defect. The returned error reports defects for logging; the manager is
// usable either way.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{dir: dir}
	err := m.Reload()
	return m, err
}

func (m *Manager) Reload() error {
	var firstErr error

	gui := defaultGUI()
	if raw, err := os.ReadFile(filepath.Join(m.dir, GUIFile)); err == nil {
		var loaded GUI
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			firstErr = fmt.Errorf("%s: %w", GUIFile, err)
		} else {
			gui = loaded
		}
	} else if !os.IsNotExist(err) {
		firstErr = err
	}
	gui.normalize()
	m.gui = gui

	mobs := map[string]rates.RawEntry{}
	if raw, err := os.ReadFile(filepath.Join(m.dir, RatesFile)); err == nil {
		var doc ratesDoc
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", RatesFile, err)
			}
		} else if doc.Mobs != nil {
			mobs = doc.Mobs
		}
	} else if !os.IsNotExist(err) && firstErr == nil {
		firstErr = err
	}
	m.mobs = mobs
	m.table = rates.Build(mobs)
	return firstErr
}

func (m *Manager) GUI() GUI            { return m.gui }
func (m *Manager) Table() *rates.Table { return m.table }

// AddMobIfMissing seeds a discovered mob at rate 1. Reports whether the table
// changed; callers batch additions and Save once.
func (m *Manager) AddMobIfMissing(mob string) bool {
	key := rates.Normalize(mob)
	if key == "" || m.table.Has(key) {
		return false
	}
	if _, exists := m.mobs[key]; exists {
		return false
	}
	m.mobs[key] = rates.Scalar(1)
	m.table = rates.Build(m.mobs)
	return true
}

// Save writes the rates document back, preserving entry forms.
func (m *Manager) Save() error {
	out, err := yaml.Marshal(ratesDoc{Mobs: m.mobs})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.dir, RatesFile), out, 0o644)
}
