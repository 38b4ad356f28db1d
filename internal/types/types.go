package types

import "github.com/rgcsekaraa/ws-backend/internal/engine"

// Client -> Server
const (
	MsgJoinGame    = "joinGame"
	MsgClaimSquare = "claimSquare"
)

// Server -> Client
const (
	MsgGameState   = "gameState"
	MsgJoinResult  = "joinResult"
	MsgAdminStatus = "adminStatus"
)

type ClientMessage struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Color    string `json:"color,omitempty"`
	SquareID int    `json:"squareId,omitempty"`
}

type ServerMessage struct {
	Type    string     `json:"type"`
	State   *GameState `json:"state,omitempty"`
	Success *bool      `json:"success,omitempty"`
	Message string     `json:"message,omitempty"`
	IsAdmin bool       `json:"isAdmin,omitempty"`
}

// Bool builds the optional success field of a joinResult; false must
// still serialize, so the zero value cannot be omitted instead.
func Bool(v bool) *bool { return &v }

type CellView struct {
	ID        int    `json:"id"`
	Color     string `json:"color"`
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName"`
}

type PlayerView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Score   int    `json:"score"`
	IsAdmin bool   `json:"isAdmin"`
	Country string `json:"country"`
}

// GameState is the full snapshot pushed after every mutation. Countdown
// is null outside cooldown, winner is null outside cooldown.
type GameState struct {
	Grid      []CellView   `json:"grid"`
	Players   []PlayerView `json:"players"`
	TimeLeft  int          `json:"timeLeft"`
	Countdown *int         `json:"countdown"`
	Winner    *PlayerView  `json:"winner"`
}

// Snapshot serializes engine state into the wire shape, deriving
// isAdmin per player.
func Snapshot(s engine.State) GameState {
	gs := GameState{
		Grid:     make([]CellView, len(s.Grid)),
		Players:  make([]PlayerView, len(s.Players)),
		TimeLeft: s.TimeLeft,
	}
	for i, c := range s.Grid {
		gs.Grid[i] = CellView{ID: c.ID, Color: c.Color, OwnerID: c.OwnerID, OwnerName: c.OwnerName}
	}
	for i, p := range s.Players {
		gs.Players[i] = playerView(p, s.AdminID)
	}
	if s.Phase == engine.PhaseCooldown {
		countdown := s.Countdown
		gs.Countdown = &countdown
	}
	if s.Winner != nil {
		w := playerView(*s.Winner, s.AdminID)
		gs.Winner = &w
	}
	return gs
}

func playerView(p engine.Player, adminID string) PlayerView {
	return PlayerView{
		ID:      p.ID,
		Name:    p.Name,
		Color:   p.Color,
		Score:   p.Score,
		IsAdmin: p.ID == adminID,
		Country: p.Country,
	}
}
