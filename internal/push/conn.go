// Package push keeps one websocket subscription to the server's event stream
// and dispatches events to per-type handlers.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"votify/internal/events"
	"votify/internal/retry"
)

var ErrClosed = errors.New("push connection closed")

type Options struct {
	// MaxAttempts bounds consecutive failed dials; zero retries until ctx ends.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *slog.Logger
	Dialer      *websocket.Dialer
}

type Conn struct {
	url   string
	token func() string
	opts  Options
	log   *slog.Logger

	mu       sync.Mutex
	handlers map[events.Type]map[uint64]events.Handler
	nextID   uint64
	ws       *websocket.Conn

	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// New prepares a connection to url; token is read on every dial so a
// re-login is picked up on the next reconnect.
func New(url string, token func() string, opts Options) *Conn {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Conn{
		url:      url,
		token:    token,
		opts:     opts,
		log:      opts.Logger.With("component", "push"),
		handlers: make(map[events.Type]map[uint64]events.Handler),
		done:     make(chan struct{}),
	}
}

// Subscribe registers h for events of type t. Several handlers may share a type.
func (c *Conn) Subscribe(t events.Type, h events.Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	if c.handlers[t] == nil {
		c.handlers[t] = make(map[uint64]events.Handler)
	}
	c.handlers[t][id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[t], id)
			c.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every current handler of its type.
func (c *Conn) Dispatch(ev events.Event) {
	c.mu.Lock()
	hs := make([]events.Handler, 0, len(c.handlers[ev.Type]))
	for _, h := range c.handlers[ev.Type] {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

func (c *Conn) Connected() bool {
	return c.connected.Load()
}

// Run dials, reads and redials until ctx ends or Close is called. After every
// reconnect subscribers get polls-changed and dashboard-changed so they can
// re-fetch whatever was missed while offline.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
		cancel()
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws != nil {
			_ = ws.Close()
		}
	}()

	attempts := c.opts.MaxAttempts
	if attempts <= 0 {
		attempts = math.MaxInt32
	}

	first := true
	for {
		var ws *websocket.Conn
		err := retry.DoWithRetry(ctx, attempts, c.opts.BaseDelay, c.opts.MaxDelay, func() error {
			var dialErr error
			ws, dialErr = c.dial(ctx)
			if dialErr != nil {
				c.log.Debug("push dial failed", "err", dialErr)
			}
			return dialErr
		})
		if err != nil {
			if c.isClosed() {
				return ErrClosed
			}
			return err
		}

		c.setWS(ws)
		if ctx.Err() != nil {
			_ = ws.Close()
			c.setWS(nil)
			if c.isClosed() {
				return ErrClosed
			}
			return ctx.Err()
		}
		c.connected.Store(true)
		if !first {
			c.log.Info("push reconnected")
			c.Dispatch(events.Event{Type: events.PollsChanged, At: time.Now().UTC()})
			c.Dispatch(events.Event{Type: events.DashboardChanged, At: time.Now().UTC()})
		}
		first = false

		readErr := c.readLoop(ws)
		c.connected.Store(false)
		c.setWS(nil)
		_ = ws.Close()

		if c.isClosed() {
			return ErrClosed
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("push connection lost", "err", readErr)
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if tok := c.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	ws, resp, err := c.opts.Dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return ws, err
}

func (c *Conn) readLoop(ws *websocket.Conn) error {
	for {
		var ev events.Event
		if err := ws.ReadJSON(&ev); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.log.Warn("ignoring malformed push frame", "err", err)
				continue
			}
			return err
		}
		if ev.Type == "" {
			continue
		}
		c.Dispatch(ev)
	}
}

func (c *Conn) setWS(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close stops Run and drops the current connection. Handlers stay registered.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws != nil {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = ws.Close()
		}
	})
	return nil
}
