// Package showdown is the game-server side of the bot: connection, login, protocol
// parsing, outbound throttling and the roomlist query.
package showdown

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
)

type Config struct {
	URL          string
	LoginURL     string
	Username     string
	Password     string
	Rooms        []string
	SendInterval time.Duration
	DryRun       bool
}

// ChatHandler receives live chat lines. It runs on the connection's read goroutine.
type ChatHandler func(Chat)

// Client wires a Conn, an Authenticator, a Sender and a BattleQuery together.
type Client struct {
	cfg    Config
	conn   *Conn
	auth   *Authenticator
	sender *Sender
	query  *BattleQuery
	onChat ChatHandler

	selfM sync.RWMutex
	self  ident.ID
}

func NewClient(cfg Config, onChat ChatHandler) *Client {
	conn := NewConn(cfg.URL, 10)
	c := &Client{
		cfg:    cfg,
		conn:   conn,
		auth:   NewAuthenticator(cfg.LoginURL),
		sender: NewSender(conn, cfg.SendInterval, cfg.DryRun),
		onChat: onChat,
	}
	c.query = NewBattleQuery(c.sender.Enqueue)
	conn.OnMessage(c.handle)
	conn.OnStateChange(func(s ConnState) {
		obslog.L().Info("showdown_state", zap.String("state", string(s)))
	})
	return c
}

// Run connects and blocks until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	go c.sender.Run(ctx)
	if err := c.conn.Connect(ctx); err != nil {
		obslog.L().Warn("showdown_connect_failed", zap.Error(err))
	}
	<-ctx.Done()
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Close(closeCtx)
}

// Battles returns the roomlist-backed battle source.
func (c *Client) Battles() *BattleQuery { return c.query }

// Self is the bot's own id once logged in.
func (c *Client) Self() ident.ID {
	c.selfM.RLock()
	defer c.selfM.RUnlock()
	return c.self
}

// Room returns the outbound side of one room.
func (c *Client) Room(room string) *RoomOut { return &RoomOut{room: room, sender: c.sender} }

// Join asks the server to join room.
func (c *Client) Join(room string) { c.sender.Enqueue("|/join " + room) }

func (c *Client) handle(raw string) {
	f := ParseFrame(raw)
	backlog := false
	for _, l := range f.Lines {
		if l.Type == "init" {
			backlog = true
		}
	}
	for _, l := range f.Lines {
		switch l.Type {
		case "challstr":
			go c.login(l.rest(0))
		case "updateuser":
			c.updateUser(l)
		case "queryresponse":
			if l.arg(0) == "roomlist" {
				c.query.Deliver(l.rest(1))
			}
		case "c", "c:", "chat":
			// joining a room replays its recent chat
			if backlog || c.onChat == nil {
				continue
			}
			if chat, ok := ChatFromLine(f.Room, l); ok {
				c.onChat(chat)
			}
		case "init":
			obslog.L().Info("showdown_room_joined", zap.String("room", f.Room))
		case "deinit":
			obslog.L().Info("showdown_room_left", zap.String("room", f.Room))
		case "noinit":
			obslog.L().Warn("showdown_join_failed", zap.String("room", f.Room), zap.String("reason", l.rest(1)))
		case "popup":
			obslog.L().Info("showdown_popup", zap.String("text", l.rest(0)))
		}
	}
}

func (c *Client) login(challstr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	assertion, err := c.auth.Assertion(ctx, c.cfg.Username, c.cfg.Password, challstr)
	if err != nil {
		obslog.L().Error("showdown_login_failed", zap.Error(err))
		return
	}
	c.sender.Enqueue(trnCommand(c.cfg.Username, assertion))
}

func (c *Client) updateUser(l Line) {
	_, name := SplitRank(l.arg(0))
	name = strings.TrimSpace(name)
	if l.arg(1) != "1" || ident.Normalize(name) != ident.Normalize(c.cfg.Username) {
		return
	}
	c.selfM.Lock()
	c.self = ident.Normalize(name)
	c.selfM.Unlock()
	obslog.L().Info("showdown_logged_in", zap.String("user", name))
	for _, room := range c.cfg.Rooms {
		c.Join(room)
	}
}

// RoomOut is the outbound side of one room.
type RoomOut struct {
	room   string
	sender *Sender
}

func (r *RoomOut) Say(text string) { r.sender.Say(r.room, text) }

func (r *RoomOut) Leave() { r.sender.Enqueue(r.room + "|/leave") }
