package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rgcsekaraa/ws-backend/internal/engine"
	"github.com/rgcsekaraa/ws-backend/internal/types"
)

const (
	nameTakenMessage  = "This name is already taken. Please choose a different one."
	colorTakenMessage = "This color is already taken. Please choose a different one."
	joinFailedMessage = "Unable to join the game."
)

type Msg interface{ isSessionMsg() }

// Connect registers a client connection; the session replies on Outbox
// with the current snapshot and, for the first connection, admin status.
type Connect struct {
	ConnID  string
	Country string
	Outbox  chan types.ServerMessage
}

func (Connect) isSessionMsg() {}

type Disconnect struct{ ConnID string }

func (Disconnect) isSessionMsg() {}

// FromClient carries a gameplay command from a registered connection.
type FromClient struct {
	ConnID string
	Cmd    engine.Command
}

func (FromClient) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetState reflects internal state for tests without data races.
type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type View struct {
	NumClients int
	TimerArmed bool
	State      engine.State
}

type timerKind int

const (
	roundTimer timerKind = iota
	cooldownTimer
)

// timerFired is the internal tick event; gen guards against fires from
// a ticker that was already cancelled when the message got queued.
type timerFired struct {
	kind timerKind
	gen  uint64
}

func (timerFired) isSessionMsg() {}

// Session owns the authoritative state. All mutation happens on the
// loop goroutine; everything else talks to it through the inbox.
type Session struct {
	inbox     chan Msg
	state     engine.State
	clients   map[string]chan types.ServerMessage
	log       *zap.Logger
	tickEvery time.Duration

	gen       uint64
	stopTimer context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, log *zap.Logger) *Session {
	return newSession(parent, log, time.Second)
}

func newSession(parent context.Context, log *zap.Logger, tickEvery time.Duration) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:     make(chan Msg, 64),
		state:     engine.NewState(),
		clients:   make(map[string]chan types.ServerMessage),
		log:       log,
		tickEvery: tickEvery,
		ctx:       ctx,
		cancel:    cancel,
	}

	go s.loop()
	return s
}

// Inbox exposes the serialized event queue to the ws layer and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Connect:
				s.handleConnect(msg)

			case Disconnect:
				s.handleDisconnect(msg)

			case FromClient:
				s.handleCommand(msg)

			case timerFired:
				s.handleTimer(msg)

			case GetState:
				msg.Reply <- View{
					NumClients: len(s.clients),
					TimerArmed: s.stopTimer != nil,
					State:      s.state.Clone(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleConnect(msg Connect) {
	s.clients[msg.ConnID] = msg.Outbox

	events, next, err := engine.Apply(s.state, engine.Command{
		Type:    engine.CmdConnect,
		ConnID:  msg.ConnID,
		Country: msg.Country,
	})
	if err != nil {
		s.log.Warn("connect rejected", zap.String("conn", msg.ConnID), zap.Error(err))
		return
	}
	s.state = next
	s.log.Info("client connected",
		zap.String("conn", msg.ConnID),
		zap.String("country", msg.Country),
		zap.Bool("admin", s.state.AdminID == msg.ConnID))

	// Greeting: admin flag first, then the initial snapshot.
	if engine.ContainsEvent(events, engine.EvtAdminChanged) {
		s.sendTo(msg.ConnID, types.ServerMessage{Type: types.MsgAdminStatus, IsAdmin: true})
	}
	snap := types.Snapshot(s.state)
	s.sendTo(msg.ConnID, types.ServerMessage{Type: types.MsgGameState, State: &snap})
}

func (s *Session) handleDisconnect(msg Disconnect) {
	if out, ok := s.clients[msg.ConnID]; ok {
		close(out)
		delete(s.clients, msg.ConnID)
	}

	events, next, err := engine.Apply(s.state, engine.Command{
		Type:   engine.CmdDisconnect,
		ConnID: msg.ConnID,
	})
	if err != nil {
		// Unknown connection: nothing to undo, nothing to announce.
		return
	}
	s.state = next
	s.log.Info("client disconnected", zap.String("conn", msg.ConnID))

	s.applyEvents(events)
	s.broadcast()
}

func (s *Session) handleCommand(msg FromClient) {
	cmd := msg.Cmd
	cmd.ConnID = msg.ConnID

	events, next, err := engine.Apply(s.state, cmd)

	if cmd.Type == engine.CmdJoinGame {
		if err != nil {
			s.sendTo(msg.ConnID, types.ServerMessage{
				Type:    types.MsgJoinResult,
				Success: types.Bool(false),
				Message: joinMessage(err),
			})
			return
		}
		s.sendTo(msg.ConnID, types.ServerMessage{Type: types.MsgJoinResult, Success: types.Bool(true)})
	}
	if err != nil {
		// Invalid claims and the rest are deliberate silent no-ops.
		return
	}

	s.state = next
	s.applyEvents(events)
	s.broadcast()
}

func (s *Session) handleTimer(msg timerFired) {
	if msg.gen != s.gen {
		return
	}

	cmdType := engine.CmdRoundTick
	if msg.kind == cooldownTimer {
		cmdType = engine.CmdCooldownTick
	}

	events, next, err := engine.Apply(s.state, engine.Command{Type: cmdType})
	if err != nil {
		return
	}
	s.state = next
	s.applyEvents(events)
	s.broadcast()
}

// applyEvents arms and disarms timers and notifies promoted admins.
// Only this loop ever touches timers.
func (s *Session) applyEvents(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtRoundStarted:
			s.armTimer(roundTimer)
			s.log.Info("round started", zap.Int("timeLeft", s.state.TimeLeft))
		case engine.EvtRoundEnded:
			s.armTimer(cooldownTimer)
			s.log.Info("round ended", zap.Any("winner", s.state.Winner))
		case engine.EvtCooldownEnded:
			// Followed by EvtRoundStarted which arms the round timer.
		case engine.EvtSessionReset:
			s.disarmTimer()
			s.log.Info("session reset to lobby")
		case engine.EvtAdminChanged:
			s.sendTo(ev.ConnID, types.ServerMessage{Type: types.MsgAdminStatus, IsAdmin: true})
			s.log.Info("admin changed", zap.String("conn", ev.ConnID))
		}
	}
}

func (s *Session) armTimer(kind timerKind) {
	s.disarmTimer()
	s.gen++
	gen := s.gen

	ctx, cancel := context.WithCancel(s.ctx)
	s.stopTimer = cancel

	go func() {
		ticker := time.NewTicker(s.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case s.inbox <- timerFired{kind: kind, gen: gen}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (s *Session) disarmTimer() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.gen++
}

func (s *Session) broadcast() {
	snap := types.Snapshot(s.state)
	out := types.ServerMessage{Type: types.MsgGameState, State: &snap}
	for id, ch := range s.clients {
		select {
		case ch <- out:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
			s.log.Warn("dropped slow client", zap.String("conn", id))
		}
	}
}

func (s *Session) sendTo(connID string, msg types.ServerMessage) {
	ch, ok := s.clients[connID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		close(ch)
		delete(s.clients, connID)
		s.log.Warn("dropped slow client", zap.String("conn", connID))
	}
}

func (s *Session) shutdown() {
	s.disarmTimer()
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func joinMessage(err error) string {
	switch err {
	case engine.ErrNameTaken:
		return nameTakenMessage
	case engine.ErrColorTaken:
		return colorTakenMessage
	default:
		return joinFailedMessage
	}
}
