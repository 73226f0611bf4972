package protocol

// Act kinds.
const (
	ActCommand  = "COMMAND"
	ActClick    = "CLICK"
	ActDeposit  = "DEPOSIT"
	ActWithdraw = "WITHDRAW"
	ActClose    = "CLOSE"
)

type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
	Admin           bool   `json:"admin,omitempty"`
}

type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
}

// ActMsg is a client action. Slot addresses the open surface; From addresses
// the player's personal storage.
type ActMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Kind            string   `json:"kind"`
	Args            []string `json:"args,omitempty"`
	Slot            int      `json:"slot,omitempty"`
	From            int      `json:"from,omitempty"`
}

// ItemView is a rendered slot; nil in SurfaceMsg.Slots means empty.
type ItemView struct {
	Kind   string   `json:"kind"`
	Name   string   `json:"name"`
	Count  int      `json:"count"`
	Lore   []string `json:"lore,omitempty"`
	Locked bool     `json:"locked,omitempty"`
	Marker bool     `json:"marker,omitempty"`
}

type SurfaceMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Title           string      `json:"title"`
	Rows            int         `json:"rows"`
	Slots           []*ItemView `json:"slots"`
	Storage         []*ItemView `json:"storage"`
}

type ChatMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

type ClosedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
