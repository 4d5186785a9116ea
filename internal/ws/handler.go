// Package ws is the connection layer: it owns the websocket, assigns each
// connection a player identity, remembers which room the connection has
// joined, and routes client events to the hub and room actors.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/impostorapp/impostor-backend/internal/game"
	"github.com/impostorapp/impostor-backend/internal/hub"
	"github.com/impostorapp/impostor-backend/internal/protocol"
	"github.com/impostorapp/impostor-backend/internal/room"
)

const writeTimeout = 3 * time.Second

// session is one connection's registry entry: its identity and the room it
// is currently attached to, if any.
type session struct {
	playerID string
	room     *room.Room
	roomCode string
	out      chan protocol.ServerMessage
	h        *hub.Hub
	log      *zap.Logger
}

func Handler(h *hub.Hub, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// A reconnecting client supplies the identity it was issued before;
		// a fresh client gets a new one.
		playerID := r.URL.Query().Get("playerId")
		if playerID == "" {
			playerID = uuid.NewString()
		}

		s := &session{
			playerID: playerID,
			out:      make(chan protocol.ServerMessage, 16),
			h:        h,
			log:      log.With(zap.String("player", playerID)),
		}
		s.log.Info("client connected")
		defer s.log.Info("client disconnected")
		defer s.leaveRoom()

		// Writer goroutine: the room must never block on this connection.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg := <-s.out:
					payload, err := json.Marshal(msg)
					if err != nil {
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		s.out <- protocol.ServerMessage{Type: protocol.EvtConnected, PlayerID: playerID}

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				s.sendError("bad json")
				continue
			}
			s.handle(cm)
		}
	}
}

func (s *session) handle(cm protocol.ClientMessage) {
	switch cm.Type {
	case protocol.EvtCreateRoom:
		s.createRoom(cm)

	case protocol.EvtJoinRoom:
		s.joinRoom(cm)

	case protocol.EvtGetRooms:
		reply := make(chan []protocol.RoomSummary, 1)
		s.h.Inbox() <- hub.ListRooms{Reply: reply}
		s.out <- protocol.ServerMessage{Type: protocol.EvtRoomList, Rooms: <-reply}

	case protocol.EvtGetRoomInfo:
		if s.room == nil || s.roomCode != cm.RoomCode {
			s.sendError(hub.ErrRoomNotFound.Error())
			return
		}
		select {
		case s.room.Inbox() <- room.GetInfo{PlayerID: s.playerID}:
		case <-s.room.Done():
			s.sendError(room.ErrRoomClosed.Error())
		}

	case protocol.EvtSetChoosingCategory:
		s.command(game.Command{Type: game.CmdSetChoosingCategory})

	case protocol.EvtStartGame:
		s.command(game.Command{
			Type:   game.CmdStartGame,
			Region: cm.Region,
			Banned: cm.BannedCategories,
		})

	case protocol.EvtHandleVote:
		s.command(game.Command{Type: game.CmdVote, TargetID: cm.VotedPlayerID})

	case protocol.EvtNextRound:
		s.command(game.Command{Type: game.CmdNextRound})

	case protocol.EvtSkipRound:
		s.command(game.Command{Type: game.CmdSkipRound})

	case protocol.EvtPlayerDisconnect:
		s.leaveRoom()

	default:
		s.sendError("unknown event type")
	}
}

func (s *session) createRoom(cm protocol.ClientMessage) {
	s.leaveRoom()

	reply := make(chan hub.CreateResult, 1)
	s.h.Inbox() <- hub.CreateRoom{
		Params: hub.CreateParams{
			RoomName:            cm.RoomName,
			IsPasswordProtected: cm.IsPasswordProtected,
			Password:            cm.Password,
			MaxPlayers:          cm.MaxPlayers,
			Host: game.Player{
				ID:     s.playerID,
				Name:   cm.HostName,
				Avatar: cm.HostAvatar,
			},
			HostOutbox: s.out,
		},
		Reply: reply,
	}
	res := <-reply
	if res.Err != nil {
		s.sendError(res.Err.Error())
		return
	}
	s.room = res.Room
	s.roomCode = res.Code
	s.out <- protocol.ServerMessage{Type: protocol.EvtRoomCreated, RoomCode: res.Code}
}

func (s *session) joinRoom(cm protocol.ClientMessage) {
	// Rejoining the room we are already in is idempotent; switching rooms
	// means leaving the old one first.
	if s.room != nil && s.roomCode != cm.RoomCode {
		s.leaveRoom()
	}

	reply := make(chan *room.Room, 1)
	s.h.Inbox() <- hub.GetRoom{Code: cm.RoomCode, Reply: reply}
	rm := <-reply
	if rm == nil {
		s.sendError(hub.ErrRoomNotFound.Error())
		return
	}

	joinReply := make(chan error, 1)
	join := room.Join{
		Player: game.Player{
			ID:     s.playerID,
			Name:   cm.PlayerName,
			Avatar: cm.PlayerAvatar,
		},
		Password: cm.Password,
		Outbox:   s.out,
		Reply:    joinReply,
	}
	select {
	case rm.Inbox() <- join:
	case <-rm.Done():
		s.sendError(room.ErrRoomClosed.Error())
		return
	}
	// The room may shut down between the hub handing it out and the join
	// being handled; its Done channel keeps this from blocking forever.
	select {
	case err := <-joinReply:
		if err != nil {
			s.sendError(err.Error())
			return
		}
	case <-rm.Done():
		s.sendError(room.ErrRoomClosed.Error())
		return
	}
	s.room = rm
	s.roomCode = cm.RoomCode
	s.out <- protocol.ServerMessage{Type: protocol.EvtJoinedRoom, RoomCode: cm.RoomCode}
}

func (s *session) command(cmd game.Command) {
	if s.room == nil {
		s.sendError("not in a room")
		return
	}
	select {
	case s.room.Inbox() <- room.FromClient{PlayerID: s.playerID, Cmd: cmd}:
	case <-s.room.Done():
		s.sendError(room.ErrRoomClosed.Error())
	}
}

func (s *session) leaveRoom() {
	if s.room == nil {
		return
	}
	select {
	case s.room.Inbox() <- room.Leave{PlayerID: s.playerID, Outbox: s.out}:
	case <-s.room.Done():
	}
	s.room = nil
	s.roomCode = ""
}

// sendError reports a failure to this connection only. If the outbox is
// already full the connection is on its way out anyway.
func (s *session) sendError(msg string) {
	select {
	case s.out <- protocol.ServerMessage{Type: protocol.EvtError, Error: msg}:
	default:
	}
}
