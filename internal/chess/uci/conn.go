package uci

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type replyKind int

const (
	replyUCIOK replyKind = iota
	replyReadyOK
	replyBestMove
)

func (k replyKind) String() string {
	switch k {
	case replyUCIOK:
		return "uciok"
	case replyReadyOK:
		return "readyok"
	default:
		return "bestmove"
	}
}

type reply struct {
	line     string
	evalCP   int
	hasScore bool
	err      error
}

// request is one outstanding command awaiting a terminal line from the engine.
type request struct {
	token uint64
	kind  replyKind

	// guarded by conn.mu
	stale    bool
	settled  bool
	evalCP   int
	hasScore bool

	done chan reply
}

// conn multiplexes engine output onto outstanding requests. The engine answers
// each kind of request in issue order, so a terminal line always belongs to the
// oldest outstanding request of its kind. Stale requests still consume their
// answer, which is then dropped.
type conn struct {
	transport Transport
	logger    *zap.Logger

	mu     sync.Mutex
	queue  []*request
	nextID uint64
	closed bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

func newConn(t Transport, logger *zap.Logger) *conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	c := &conn{
		transport: t,
		logger:    logger,
		group:     g,
		cancel:    cancel,
	}
	g.Go(func() error { return c.readLoop(gctx) })
	return c
}

func (c *conn) readLoop(ctx context.Context) error {
	for {
		line, err := c.transport.ReadLine(ctx)
		if err != nil {
			c.failAll(fmt.Errorf("%w: read: %v", ErrEngineNotReady, err))
			return err
		}
		if line == "" {
			continue
		}
		c.dispatch(line)
	}
}

func (c *conn) dispatch(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.HasPrefix(line, "info "):
		if cp, ok := parseScore(line); ok {
			if head := c.headLocked(replyBestMove); head != nil {
				head.evalCP, head.hasScore = cp, true
			}
		}
	case line == "uciok":
		c.resolveLocked(replyUCIOK, line)
	case line == "readyok":
		c.resolveLocked(replyReadyOK, line)
	case strings.HasPrefix(line, "bestmove"):
		c.resolveLocked(replyBestMove, line)
	}
}

func (c *conn) headLocked(kind replyKind) *request {
	for _, r := range c.queue {
		if r.kind == kind {
			return r
		}
	}
	return nil
}

func (c *conn) resolveLocked(kind replyKind, line string) {
	idx := -1
	for i, r := range c.queue {
		if r.kind == kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.logger.Debug("uci reply without request", zap.String("line", line))
		return
	}
	r := c.queue[idx]
	c.queue = append(c.queue[:idx], c.queue[idx+1:]...)
	if r.stale {
		c.logger.Debug("discarding stale uci reply",
			zap.Uint64("token", r.token),
			zap.String("kind", kind.String()),
			zap.String("line", line),
		)
		return
	}
	c.settleLocked(r, reply{line: line, evalCP: r.evalCP, hasScore: r.hasScore})
}

func (c *conn) settleLocked(r *request, rep reply) {
	if r.settled {
		return
	}
	r.settled = true
	r.done <- rep
}

// send registers a request of kind and writes lines. A request is registered
// before its command is written so the reply cannot race ahead of it.
func (c *conn) send(ctx context.Context, kind replyKind, lines ...string) (*request, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrEngineNotReady
	}
	c.nextID++
	r := &request{token: c.nextID, kind: kind, done: make(chan reply, 1)}
	c.queue = append(c.queue, r)
	c.mu.Unlock()

	for _, line := range lines {
		if err := c.transport.WriteLine(ctx, line); err != nil {
			c.drop(r)
			return nil, fmt.Errorf("send %q: %w", line, err)
		}
	}
	return r, nil
}

// write sends lines that have no reply.
func (c *conn) write(ctx context.Context, lines ...string) error {
	for _, line := range lines {
		if err := c.transport.WriteLine(ctx, line); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
	}
	return nil
}

func (c *conn) await(ctx context.Context, r *request) (reply, error) {
	select {
	case rep := <-r.done:
		if rep.err != nil {
			return reply{}, rep.err
		}
		return rep, nil
	case <-ctx.Done():
		c.abandon(r, nil)
		return reply{}, ctx.Err()
	}
}

// abandon marks r stale. The engine still owes an answer for it, which will be
// dropped on arrival. A non-nil err is delivered to the waiting caller.
func (c *conn) abandon(r *request, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r.stale = true
	if err != nil {
		c.settleLocked(r, reply{err: err})
	} else {
		r.settled = true
	}
}

func (c *conn) drop(r *request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, q := range c.queue {
		if q == r {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

func (c *conn) failAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, r := range c.queue {
		c.settleLocked(r, reply{err: err})
	}
	c.queue = nil
}

func (c *conn) close() {
	c.failAll(ErrEngineNotReady)
	c.cancel()
	_ = c.transport.Close()
	_ = c.group.Wait()
}
