package showdown

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
)

var ErrNotConnected = errors.New("showdown: not connected")

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateFailed       ConnState = "failed"
)

type MessageCallback func(raw string)

type StateCallback func(state ConnState)

// roomlist replies for popular formats exceed the library's default read limit.
const readLimit = 4 << 20

// Conn is a reconnecting websocket to the game server carrying raw text frames.
type Conn struct {
	url string

	conn   *websocket.Conn
	connM  sync.RWMutex
	state  ConnState
	stateM sync.RWMutex

	msgCbs   []MessageCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewConn(url string, maxReconnectAttempts int) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		url:                  url,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func (c *Conn) Connect(ctx context.Context) error {
	switch c.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	c.setState(StateConnecting)
	if err := c.dial(ctx); err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	return nil
}

func (c *Conn) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		return err
	}
	conn.SetReadLimit(readLimit)

	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()
	c.setState(StateConnected)

	c.wg.Add(2)
	go c.listen(conn)
	go c.pingLoop(conn)
	return nil
}

func (c *Conn) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		typ, data, err := conn.Read(c.rootCtx)
		if err != nil {
			if c.isStopping() {
				return
			}
			obslog.L().Warn("showdown_read_error", zap.Error(err))
			c.drop(conn, "reconnect")
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		raw := string(data)

		c.cbM.RLock()
		callbacks := append([]MessageCallback(nil), c.msgCbs...)
		c.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(raw)
		}
	}
}

func (c *Conn) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-t.C:
			if c.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(c.rootCtx, 5*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if c.isStopping() {
					return
				}
				c.drop(conn, "ping failure")
				return
			}
		}
	}
}

// drop closes conn if it is still the live one and starts reconnecting.
func (c *Conn) drop(conn *websocket.Conn, reason string) {
	c.connM.Lock()
	if c.conn != conn {
		c.connM.Unlock()
		return
	}
	c.conn = nil
	c.connM.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	c.setState(StateDisconnected)
	c.scheduleReconnect()
}

func (c *Conn) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 || c.isStopping() {
		return
	}
	c.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			if err := c.dial(c.rootCtx); err != nil {
				obslog.L().Warn("showdown_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			obslog.L().Info("showdown_reconnected", zap.Int("attempt", attempt))
			return
		}
		c.setState(StateFailed)
	}()
}

// Write sends one text frame.
func (c *Conn) Write(ctx context.Context, text string) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	return conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (c *Conn) OnMessage(cb MessageCallback) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.msgCbs = append(c.msgCbs, cb)
}

func (c *Conn) OnStateChange(cb StateCallback) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.stateCbs = append(c.stateCbs, cb)
}

func (c *Conn) State() ConnState {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Conn) setState(state ConnState) {
	c.stateM.Lock()
	c.state = state
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := append([]StateCallback(nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

func (c *Conn) current() *websocket.Conn {
	c.connM.RLock()
	defer c.connM.RUnlock()
	return c.conn
}

func (c *Conn) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.connM.Lock()
	conn := c.conn
	c.conn = nil
	c.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Conn) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
}
