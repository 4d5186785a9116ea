// Package room runs one goroutine per room. Every action that touches a
// room's state goes through its inbox, so transitions are totally ordered
// and every member observes the same snapshot sequence.
package room

import (
	"context"
	"math/rand"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/impostorapp/impostor-backend/internal/game"
	"github.com/impostorapp/impostor-backend/internal/protocol"
)

type Msg interface{ isRoomMsg() }

// Join attaches a connection to the room. Joining with an id that is
// already in the roster is an idempotent reattach: the outbox is replaced
// and a fresh snapshot is sent, the roster does not change.
type Join struct {
	Player   game.Player
	Password string
	Outbox   chan protocol.ServerMessage
	Reply    chan error
}

// Leave detaches a connection and removes the player from the roster.
// Outbox identifies the connection doing the leaving: a Leave whose outbox
// is no longer the one registered for that player is a stale connection
// racing a reconnect and is ignored. A nil Outbox removes unconditionally.
type Leave struct {
	PlayerID string
	Outbox   chan protocol.ServerMessage
}

// FromClient carries a game command together with the sender's identity so
// guard failures can be reported to that connection alone.
type FromClient struct {
	PlayerID string
	Cmd      game.Command
}

// GetInfo asks for a fresh snapshot delivered only to the requesting member.
type GetInfo struct{ PlayerID string }

type GetView struct{ Reply chan View }

type Shutdown struct{}

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (FromClient) isRoomMsg() {}
func (GetInfo) isRoomMsg()    {}
func (GetView) isRoomMsg()    {}
func (Shutdown) isRoomMsg()   {}

// Meta is the immutable part of a room set at creation.
type Meta struct {
	Code         string
	Name         string
	PasswordHash []byte
	MaxPlayers   int
}

// View reflects internal state without data races; test-only.
type View struct {
	Version    int
	NumClients int
	Meta       Meta
	State      game.State
}

type Room struct {
	inbox   chan Msg
	meta    Meta
	state   game.State
	version int
	clients map[string]chan protocol.ServerMessage
	words   game.WordSource
	rng     *rand.Rand
	log     *zap.Logger
	onEmpty func(code string)
	summary atomic.Pointer[protocol.RoomSummary]
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts a room with the creator already joined as host. The host's
// outbox receives the initial snapshot before any other message is handled.
// onEmpty runs after the last player leaves, right before the loop exits;
// the hub uses it to free the room code.
func New(parent context.Context, meta Meta, host game.Player, hostOutbox chan protocol.ServerMessage,
	src game.WordSource, rng *rand.Rand, log *zap.Logger, onEmpty func(code string)) *Room {

	ctx, cancel := context.WithCancel(parent)
	state, _ := game.AddPlayer(game.NewState(), host)

	r := &Room{
		inbox:   make(chan Msg, 64),
		meta:    meta,
		state:   state,
		clients: map[string]chan protocol.ServerMessage{host.ID: hostOutbox},
		words:   src,
		rng:     rng,
		log:     log,
		onEmpty: onEmpty,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.broadcast()
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down. Senders waiting on a reply
// select on it so a message that raced the shutdown never blocks them.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Closed reports whether the room's loop has stopped accepting messages.
func (r *Room) Closed() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

// Summary is a point-in-time room-list entry. It is read by the hub without
// going through the inbox, so it reflects the last broadcast, which is all
// the staleness the room list tolerates anyway.
func (r *Room) Summary() protocol.RoomSummary {
	return *r.summary.Load()
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)

			case Leave:
				if r.handleLeave(msg) {
					return
				}

			case FromClient:
				r.handleCommand(msg)

			case GetInfo:
				if out, ok := r.clients[msg.PlayerID]; ok {
					r.send(msg.PlayerID, out, r.snapshotMsg(msg.PlayerID))
				}

			case GetView:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					Meta:       r.meta,
					State:      r.state,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	if r.state.HasPlayer(msg.Player.ID) {
		// Reconnect: reattach and resend the full snapshot.
		r.clients[msg.Player.ID] = msg.Outbox
		msg.Reply <- nil
		r.send(msg.Player.ID, msg.Outbox, r.snapshotMsg(msg.Player.ID))
		return
	}
	if len(r.state.Players) >= r.meta.MaxPlayers {
		msg.Reply <- ErrRoomFull
		return
	}
	if len(r.meta.PasswordHash) > 0 {
		if bcrypt.CompareHashAndPassword(r.meta.PasswordHash, []byte(msg.Password)) != nil {
			msg.Reply <- ErrBadPassword
			return
		}
	}

	state, err := game.AddPlayer(r.state, msg.Player)
	if err != nil {
		msg.Reply <- err
		return
	}
	r.state = state
	r.clients[msg.Player.ID] = msg.Outbox
	msg.Reply <- nil
	r.log.Info("player joined",
		zap.String("room", r.meta.Code),
		zap.String("player", msg.Player.ID),
		zap.Int("roster", len(r.state.Players)))
	r.version++
	r.broadcast()
}

// handleLeave returns true when the room emptied and the loop must exit.
func (r *Room) handleLeave(msg Leave) bool {
	playerID := msg.PlayerID
	if cur, ok := r.clients[playerID]; ok {
		if msg.Outbox != nil && cur != msg.Outbox {
			// The player reattached on a newer connection; this leave
			// belongs to the old one.
			return false
		}
		delete(r.clients, playerID)
	}
	if !r.state.HasPlayer(playerID) {
		return false
	}

	state, events, err := game.RemovePlayer(r.state, playerID)
	if err != nil {
		return false
	}
	r.state = state
	r.log.Info("player left",
		zap.String("room", r.meta.Code),
		zap.String("player", playerID),
		zap.Int("roster", len(r.state.Players)))

	if len(r.state.Players) == 0 {
		if r.onEmpty != nil {
			r.onEmpty(r.meta.Code)
		}
		r.shutdown()
		return true
	}

	r.version++
	r.emit(events)
	r.broadcast()
	return false
}

func (r *Room) handleCommand(msg FromClient) {
	cmd := msg.Cmd
	cmd.ActorID = msg.PlayerID
	events, state, err := game.Apply(r.state, cmd, r.words, r.rng)
	if err != nil {
		// Guard failures are scoped to the acting connection.
		if out, ok := r.clients[msg.PlayerID]; ok {
			r.send(msg.PlayerID, out, protocol.ServerMessage{
				Type:  protocol.EvtError,
				Error: err.Error(),
			})
		}
		return
	}

	r.state = state
	r.version++
	r.emit(events)
	r.broadcast()
}

// emit translates state-machine events into targeted wire messages. The
// snapshot broadcast that follows carries the state itself.
func (r *Room) emit(events []game.Event) {
	for _, e := range events {
		switch e.Type {
		case game.EvtCategoriesOpen:
			hostID := r.state.HostID()
			if out, ok := r.clients[hostID]; ok {
				r.send(hostID, out, protocol.ServerMessage{
					Type: protocol.EvtWordCategories,
					Categories: &protocol.CategoryLists{
						Argentina:     r.words.Categories("Argentina"),
						Internacional: r.words.Categories("Internacional"),
					},
				})
			}

		case game.EvtRoundResolved:
			caught := e.ImpostorCaught
			r.log.Info("round resolved",
				zap.String("room", r.meta.Code),
				zap.Bool("impostorCaught", caught),
				zap.Int("round", r.state.Round))
			for id, out := range r.clients {
				r.send(id, out, protocol.ServerMessage{
					Type:           protocol.EvtRoundResult,
					ImpostorCaught: &caught,
				})
			}

		case game.EvtRoundStarted:
			r.log.Info("round started",
				zap.String("room", r.meta.Code),
				zap.String("region", r.state.Region),
				zap.String("category", r.state.Category))
		}
	}
}

func (r *Room) snapshotMsg(viewerID string) protocol.ServerMessage {
	info := protocol.BuildRoomInfo(r.meta.Code, r.meta.Name, r.meta.MaxPlayers, r.state, viewerID)
	return protocol.ServerMessage{
		Type:    protocol.EvtRoomInfo,
		Version: r.version,
		Room:    &info,
	}
}

// broadcast sends a per-viewer snapshot to every attached connection and
// refreshes the room-list summary. Clients whose outbox is full are treated
// as disconnected.
func (r *Room) broadcast() {
	r.summary.Store(&protocol.RoomSummary{
		Code:                r.meta.Code,
		RoomName:            r.meta.Name,
		IsPasswordProtected: len(r.meta.PasswordHash) > 0,
		MaxPlayers:          r.meta.MaxPlayers,
		CurrentPlayers:      len(r.state.Players),
	})

	var dropped []string
	for id, ch := range r.clients {
		select {
		case ch <- r.snapshotMsg(id):
			// ok
		default:
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		r.log.Warn("detaching slow client", zap.String("room", r.meta.Code), zap.String("player", id))
		delete(r.clients, id)
	}
}

// send delivers one targeted message, detaching the client if its outbox is
// full rather than blocking the room. The connection itself is reaped by the
// transport's own liveness handling.
func (r *Room) send(id string, ch chan protocol.ServerMessage, msg protocol.ServerMessage) {
	select {
	case ch <- msg:
	default:
		r.log.Warn("detaching slow client", zap.String("room", r.meta.Code), zap.String("player", id))
		delete(r.clients, id)
	}
}

// shutdown answers whatever is already queued in the inbox so no sender is
// left waiting on a reply, then cancels the room context. Messages that
// arrive later are covered by senders selecting on Done.
func (r *Room) shutdown() {
	for {
		select {
		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- ErrRoomClosed
			case GetView:
				msg.Reply <- View{Version: r.version, Meta: r.meta, State: r.state}
			}
		default:
			clear(r.clients)
			r.cancel()
			return
		}
	}
}
