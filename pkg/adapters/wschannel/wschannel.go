package wschannel

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/interfaces/channel"
	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

// Dialer opens websocket push channels. It implements channel.Dialer;
// the credential is sent as a bearer token during the handshake.
type Dialer struct {
	url       string
	handshake time.Duration
}

// Option customizes the dialer.
type Option func(*Dialer)

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(dl *Dialer) {
		if d > 0 {
			dl.handshake = d
		}
	}
}

var errURLRequired = errors.New("wschannel: url is required")

// NewDialer builds a dialer for the given websocket endpoint.
func NewDialer(url string, opts ...Option) (*Dialer, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errURLRequired
	}
	dl := &Dialer{
		url:       url,
		handshake: defaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(dl)
	}
	return dl, nil
}

// Dial opens the push channel.
func (d *Dialer) Dial(ctx context.Context, credential string) (channel.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)

	wsDialer := websocket.Dialer{HandshakeTimeout: d.handshake}
	ws, resp, err := wsDialer.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return &conn{ws: ws}, nil
}

type conn struct {
	ws *websocket.Conn
}

// Receive blocks for the next pushed message. Context cancellation is
// honored through a read deadline.
func (c *conn) Receive(ctx context.Context) (channel.Message, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetReadDeadline(deadline)
	} else {
		c.ws.SetReadDeadline(time.Time{})
	}
	if err := ctx.Err(); err != nil {
		return channel.Message{}, err
	}

	var msg channel.Message
	if err := c.ws.ReadJSON(&msg); err != nil {
		return channel.Message{}, err
	}
	return msg, nil
}

// Close sends a close frame and tears down the socket.
func (c *conn) Close() error {
	deadline := time.Now().Add(time.Second)
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	return c.ws.Close()
}
