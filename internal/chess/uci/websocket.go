package uci

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const wsDialTimeout = 10 * time.Second

// WebSocketTransport speaks UCI to a remote engine gateway, one line per text frame.
// Frames holding several newline-separated lines are split on read.
type WebSocketTransport struct {
	conn *websocket.Conn

	pending []string

	closeOnce sync.Once
}

// WebSocketDialer connects to wsURL for every new handle. header may be nil.
func WebSocketDialer(wsURL string, header http.Header) Dialer {
	return func(ctx context.Context) (Transport, error) {
		return DialWebSocket(ctx, wsURL, header)
	}
}

func DialWebSocket(ctx context.Context, wsURL string, header http.Header) (*WebSocketTransport, error) {
	if strings.TrimSpace(wsURL) == "" {
		return nil, fmt.Errorf("engine websocket url is required")
	}
	dialCtx, cancel := context.WithTimeout(ctx, wsDialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial engine websocket: %w", err)
	}
	return &WebSocketTransport{conn: conn}, nil
}

func (w *WebSocketTransport) WriteLine(ctx context.Context, line string) error {
	return w.conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (w *WebSocketTransport) ReadLine(ctx context.Context) (string, error) {
	for len(w.pending) == 0 {
		typ, data, err := w.conn.Read(ctx)
		if err != nil {
			return "", err
		}
		if typ != websocket.MessageText {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if s := strings.TrimSpace(line); s != "" {
				w.pending = append(w.pending, s)
			}
		}
	}
	line := w.pending[0]
	w.pending = w.pending[1:]
	return line, nil
}

func (w *WebSocketTransport) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.conn.Close(websocket.StatusNormalClosure, "quit")
	})
	return err
}
