// Package hub is the room directory: the only shared structure across
// rooms. A single goroutine owns the code-to-room map, so creation, lookup
// and eviction are serialized while the rooms themselves run independently.
package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/impostorapp/impostor-backend/internal/game"
	"github.com/impostorapp/impostor-backend/internal/protocol"
	"github.com/impostorapp/impostor-backend/internal/room"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrValidation = errors.New("invalid room parameters")

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type HubMsg interface{ isHubMsg() }

// CreateParams is everything needed to open a room with its creator as the
// sole player and host.
type CreateParams struct {
	RoomName            string
	IsPasswordProtected bool
	Password            string
	MaxPlayers          int
	Host                game.Player
	HostOutbox          chan protocol.ServerMessage
}

type CreateResult struct {
	Code string
	Room *room.Room
	Err  error
}

type CreateRoom struct {
	Params CreateParams
	Reply  chan CreateResult
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type ListRooms struct {
	Reply chan []protocol.RoomSummary
}

type RemoveRoom struct{ Code string }

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Options tunes the hub. Seed is split per room so each room gets its own
// deterministic random stream in tests; zero means seed from the clock.
type Options struct {
	Words      game.WordSource
	CodeLength int
	Seed       int64
	Logger     *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*room.Room
	words   game.WordSource
	codeLen int
	seed    int64
	created int64
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*room.Room),
		words:   opts.Words,
		codeLen: opts.CodeLength,
		seed:    opts.Seed,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.createRoom(msg.Params)

			case GetRoom:
				rm := h.rooms[msg.Code]
				if rm != nil && rm.Closed() {
					// Emptied itself; its RemoveRoom is still in flight.
					delete(h.rooms, msg.Code)
					rm = nil
				}
				msg.Reply <- rm // may be nil

			case ListRooms:
				msg.Reply <- h.listRooms()

			case RemoveRoom:
				delete(h.rooms, msg.Code)
				h.log.Info("room evicted", zap.String("room", msg.Code))

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) createRoom(p CreateParams) CreateResult {
	if err := validate(p); err != nil {
		return CreateResult{Err: err}
	}

	var hash []byte
	if p.IsPasswordProtected {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return CreateResult{Err: fmt.Errorf("hash password: %w", err)}
		}
	}

	code, err := h.uniqueCode()
	if err != nil {
		return CreateResult{Err: err}
	}

	meta := room.Meta{
		Code:         code,
		Name:         p.RoomName,
		PasswordHash: hash,
		MaxPlayers:   p.MaxPlayers,
	}
	seed := h.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// The offset counts every room ever created, not the live ones, so an
	// eviction can never hand a later room an already-used seed.
	rng := mrand.New(mrand.NewSource(seed + h.created))
	h.created++

	rm := room.New(h.ctx, meta, p.Host, p.HostOutbox, h.words, rng,
		h.log.Named("room"), h.evict)
	h.rooms[code] = rm
	h.log.Info("room created",
		zap.String("room", code),
		zap.String("name", p.RoomName),
		zap.Int("maxPlayers", p.MaxPlayers))
	return CreateResult{Code: code, Room: rm}
}

// evict is handed to each room and runs on the room's goroutine when its
// roster empties, so the removal goes back through the hub inbox.
func (h *Hub) evict(code string) {
	select {
	case h.inbox <- RemoveRoom{Code: code}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) listRooms() []protocol.RoomSummary {
	out := make([]protocol.RoomSummary, 0, len(h.rooms))
	for _, rm := range h.rooms {
		out = append(out, rm.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// uniqueCode regenerates on collision; the code space makes collisions rare
// enough that the loop effectively runs once.
func (h *Hub) uniqueCode() (string, error) {
	for {
		code, err := generateCode(h.codeLen)
		if err != nil {
			return "", err
		}
		if _, taken := h.rooms[code]; !taken {
			return code, nil
		}
		h.log.Warn("room code collision, regenerating", zap.String("room", code))
	}
}

func generateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}

func validate(p CreateParams) error {
	if p.RoomName == "" {
		return fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if p.MaxPlayers < 2 || p.MaxPlayers > 20 {
		return fmt.Errorf("%w: maxPlayers must be between 2 and 20", ErrValidation)
	}
	if p.IsPasswordProtected && p.Password == "" {
		return fmt.Errorf("%w: password is required for a protected room", ErrValidation)
	}
	if p.Host.ID == "" || p.Host.Name == "" {
		return fmt.Errorf("%w: host name is required", ErrValidation)
	}
	return nil
}

func (h *Hub) shutdown() {
	for code, rm := range h.rooms {
		rm.Inbox() <- room.Shutdown{}
		delete(h.rooms, code)
	}
	h.cancel()
}
