// Package obs talks to OBS Studio through obs-websocket 4.x.
package obs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hlemont/stream-automate/internal/logging"
	"github.com/hlemont/stream-automate/internal/protocol"
)

const (
	pingPeriod   = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	readLimit    = 1 << 20
)

// ClientOptions configures one session.
type ClientOptions struct {
	Address  string
	Port     int
	Password string
	Logger   *slog.Logger

	// OnEvent receives every unsolicited update. It runs on the read
	// goroutine and must not block.
	OnEvent func(protocol.Event)

	// OnClose is called once when the connection ends, for any reason.
	OnClose func(err error)

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Client is one authenticated obs-websocket session. It is not
// reconnected; the Guard opens a new one instead.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	opts   ClientOptions

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan protocol.Response
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

// Endpoint returns the websocket URL for address and port.
func Endpoint(address string, port int) string {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(address, strconv.Itoa(port))}
	return u.String()
}

// Dial connects to obs-websocket and authenticates when required.
func Dial(ctx context.Context, opts ClientOptions) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	endpoint := Endpoint(opts.Address, opts.Port)
	logger.Debug("connecting", "url", endpoint)

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		opts:    opts,
		pending: make(map[string]chan protocol.Response),
		done:    make(chan struct{}),
	}
	go c.readPump()
	go c.pingLoop()

	if err := c.authenticate(ctx); err != nil {
		c.Close()
		return nil, err
	}
	logger.Info("connected to obs-websocket", "url", endpoint)
	return c, nil
}

func (c *Client) authenticate(ctx context.Context) error {
	resp, err := c.Call(ctx, protocol.GetAuthRequired, nil)
	if err != nil {
		return fmt.Errorf("auth handshake: %w", err)
	}
	var info protocol.AuthInfo
	if err := resp.Decode(&info); err != nil {
		return err
	}
	if !info.AuthRequired {
		return nil
	}
	auth := protocol.AuthResponse(c.opts.Password, info.Salt, info.Challenge)
	if _, err := c.Call(ctx, protocol.Authenticate, protocol.Fields{"auth": auth}); err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			return fmt.Errorf("%w: %s", ErrAuthFailed, reqErr.Message)
		}
		return err
	}
	return nil
}

// Call sends a request and waits for its response. An "error" status is
// returned as *RequestError alongside the response.
func (c *Client) Call(ctx context.Context, requestType string, fields protocol.Fields) (protocol.Response, error) {
	id := uuid.NewString()
	ch := make(chan protocol.Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.Response{}, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(protocol.Request{Type: requestType, ID: id, Fields: fields})
	if err != nil {
		return protocol.Response{}, fmt.Errorf("marshal %s: %w", requestType, err)
	}
	if err := c.write(data); err != nil {
		return protocol.Response{}, fmt.Errorf("send %s: %w", requestType, err)
	}

	select {
	case resp := <-ch:
		if resp.Status == protocol.StatusError {
			return resp, &RequestError{RequestType: requestType, Message: resp.Error}
		}
		return resp, nil
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	case <-c.done:
		return protocol.Response{}, ErrClosed
	}
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readPump() {
	var readErr error
	defer func() { c.shutdown(readErr) }()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			readErr = err
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			c.logger.Warn("invalid message", "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.Response) {
	if msg.IsEvent() {
		if c.opts.OnEvent == nil {
			return
		}
		ev, err := protocol.ParseEvent(msg)
		if err != nil {
			c.logger.Warn("invalid event", "error", err)
			return
		}
		c.opts.OnEvent(ev)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[msg.MessageID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response without pending request", "message_id", msg.MessageID)
		return
	}
	select {
	case ch <- msg:
	default:
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
		c.logger.Info("disconnected from obs-websocket")
		if c.opts.OnClose != nil {
			c.opts.OnClose(err)
		}
	})
}

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close ends the session. OnClose fires from the read goroutine.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
