package engine

import (
	"errors"
	"strings"
)

var ErrUnknownConn = errors.New("unknown connection")
var ErrAlreadyJoined = errors.New("connection already joined")
var ErrNameTaken = errors.New("name already taken")
var ErrColorTaken = errors.New("color already taken")
var ErrNoRound = errors.New("no round running")
var ErrBadCell = errors.New("cell out of range")
var ErrAdminCell = errors.New("cell reserved for admin")
var ErrAdminOnlyZero = errors.New("admin may only claim the admin cell")
var ErrNotJoined = errors.New("connection has not joined")
var ErrWrongPhase = errors.New("wrong phase for tick")
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	GridSize        = 100
	AdminCellID     = 0
	RoundSeconds    = 60
	CooldownSeconds = 10
	MaxNameLen      = 15

	AdminColor     = "#000000"
	UnclaimedColor = "#ffffff"

	// Sentinel identity shown on cell 0 while no connection holds admin.
	SentinelAdminID   = "admin"
	SentinelAdminName = "Admin"
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseActive   Phase = "active"
	PhaseCooldown Phase = "cooldown"
)

type Player struct {
	ID      string
	Name    string
	Color   string
	Score   int
	Country string
}

type Cell struct {
	ID        int
	Color     string
	OwnerID   string
	OwnerName string
}

// State is the whole authoritative session. Players keeps join order;
// Conns keeps connect order and includes connections that never joined.
type State struct {
	Grid      []Cell
	Players   []Player
	Conns     []string
	Countries map[string]string
	Phase     Phase
	TimeLeft  int
	Countdown int
	Winner    *Player
	AdminID   string
}

type CommandType string

const (
	CmdConnect      CommandType = "Connect"
	CmdDisconnect   CommandType = "Disconnect"
	CmdJoinGame     CommandType = "JoinGame"
	CmdClaimSquare  CommandType = "ClaimSquare"
	CmdRoundTick    CommandType = "RoundTick"
	CmdCooldownTick CommandType = "CooldownTick"
)

type Command struct {
	Type    CommandType
	ConnID  string
	Name    string
	Color   string
	CellID  int
	Country string
}

type EventType string

const (
	EvtRoundStarted  EventType = "RoundStarted"
	EvtRoundEnded    EventType = "RoundEnded"
	EvtCooldownEnded EventType = "CooldownEnded"
	EvtSessionReset  EventType = "SessionReset"
	EvtAdminChanged  EventType = "AdminChanged"
)

type Event struct {
	Type   EventType
	ConnID string
}

// Apply runs one command against the state and returns the events the
// session loop needs to act on (timer arming, admin notification). On
// error the returned state is the input unchanged; callers treat most
// errors as silent no-ops.
func Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()

	switch cmd.Type {
	case CmdConnect:
		next.Conns = append(next.Conns, cmd.ConnID)
		next.Countries[cmd.ConnID] = cmd.Country

		var events []Event
		if next.AdminID == "" {
			next.AdminID = cmd.ConnID
			next.setAdminCell()
			events = append(events, Event{Type: EvtAdminChanged, ConnID: cmd.ConnID})
		}
		return events, next, nil

	case CmdJoinGame:
		if !next.connected(cmd.ConnID) {
			return nil, s, ErrUnknownConn
		}
		if next.playerIndex(cmd.ConnID) >= 0 {
			return nil, s, ErrAlreadyJoined
		}

		name := truncateName(cmd.Name)
		for _, p := range next.Players {
			if p.Name == name {
				return nil, s, ErrNameTaken
			}
			if p.Color == cmd.Color {
				return nil, s, ErrColorTaken
			}
		}
		if cmd.Color == AdminColor && cmd.ConnID != next.AdminID {
			return nil, s, ErrColorTaken
		}

		next.Players = append(next.Players, Player{
			ID:      cmd.ConnID,
			Name:    name,
			Color:   cmd.Color,
			Country: next.Countries[cmd.ConnID],
		})

		var events []Event
		if next.Phase == PhaseLobby {
			next.startRound()
			events = append(events, Event{Type: EvtRoundStarted})
		} else if cmd.ConnID == next.AdminID {
			// Admin joined mid-round: cell 0 picks up their display name.
			next.setAdminCell()
		}
		next.recomputeScores()
		return events, next, nil

	case CmdClaimSquare:
		if next.Phase != PhaseActive {
			return nil, s, ErrNoRound
		}
		if cmd.CellID < 0 || cmd.CellID >= GridSize {
			return nil, s, ErrBadCell
		}
		idx := next.playerIndex(cmd.ConnID)
		if idx < 0 {
			return nil, s, ErrNotJoined
		}
		if cmd.CellID == AdminCellID && cmd.ConnID != next.AdminID {
			return nil, s, ErrAdminCell
		}
		if cmd.ConnID == next.AdminID && cmd.CellID != AdminCellID {
			return nil, s, ErrAdminOnlyZero
		}

		if cmd.CellID == AdminCellID {
			// The admin cell keeps its reserved color no matter who paints it.
			next.setAdminCell()
		} else {
			p := next.Players[idx]
			next.Grid[cmd.CellID] = Cell{
				ID:        cmd.CellID,
				Color:     p.Color,
				OwnerID:   p.ID,
				OwnerName: p.Name,
			}
		}
		next.recomputeScores()
		return nil, next, nil

	case CmdRoundTick:
		if next.Phase != PhaseActive {
			return nil, s, ErrWrongPhase
		}
		next.TimeLeft--
		if next.TimeLeft > 0 {
			return nil, next, nil
		}
		next.endRound()
		return []Event{{Type: EvtRoundEnded}}, next, nil

	case CmdCooldownTick:
		if next.Phase != PhaseCooldown {
			return nil, s, ErrWrongPhase
		}
		next.Countdown--
		if next.Countdown > 0 {
			return nil, next, nil
		}
		next.startRound()
		next.recomputeScores()
		return []Event{{Type: EvtCooldownEnded}, {Type: EvtRoundStarted}}, next, nil

	case CmdDisconnect:
		if !next.connected(cmd.ConnID) {
			return nil, s, ErrUnknownConn
		}
		next.removeConn(cmd.ConnID)
		wasPlayer := next.removePlayer(cmd.ConnID)

		var events []Event
		if cmd.ConnID == next.AdminID {
			if len(next.Players) > 0 {
				promoted := &next.Players[0]
				promoted.Color = AdminColor
				next.AdminID = promoted.ID
				next.setAdminCell()
				events = append(events, Event{Type: EvtAdminChanged, ConnID: promoted.ID})
			} else {
				next.AdminID = ""
				next.setAdminCell()
			}
		}

		if wasPlayer && len(next.Players) == 0 {
			next.resetToLobby()
			events = append(events, Event{Type: EvtSessionReset})
		} else {
			next.recomputeScores()
		}
		return events, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func truncateName(name string) string {
	runes := []rune(strings.TrimSpace(name))
	if len(runes) > MaxNameLen {
		runes = runes[:MaxNameLen]
	}
	return string(runes)
}
