package mongrel2

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler is the user-facing capability set a request is dispatched to: one
// method per request variant, plus the disconnect notice. Embed BaseHandler
// to inherit sensible defaults for whichever methods an application doesn't
// care to override.
type Handler interface {
	// HandleHTTP handles an ordinary HTTP request.
	HandleHTTP(req *HTTPRequest) *Response

	// HandleJSON handles a JSON message request that is not a disconnect
	// notice.
	HandleJSON(req *JSONRequest) *Response

	// HandleXML handles an XML message request.
	HandleXML(req *XMLRequest) *Response

	// HandleWebSocket handles a single WebSocket frame.
	HandleWebSocket(req *WebSocketRequest) *WebSocketResponse

	// HandleDisconnect handles a disconnect notice. No reply is ever sent
	// for it, so it returns nothing.
	HandleDisconnect(env *Envelope)
}

// BaseHandler implements Handler with conservative defaults: HandleHTTP
// returns 204 No Content, HandleJSON/HandleXML/HandleDisconnect do nothing,
// and HandleWebSocket replies with a POLICY_VIOLATION close frame. Embed it
// in an application's handler type and override only the methods it cares
// about.
//
// If the embedding type is constructed as a pointer and handed to NewRunner,
// NewRunner injects its ResponsePool into Pool so HandleHTTP's default reply
// is drawn from the pool like any other response in the hot path.
type BaseHandler struct {
	Pool *ResponsePool
}

// SetResponsePool installs p as the pool BaseHandler's default HandleHTTP
// draws responses from. NewRunner calls this automatically on any handler
// that exposes it.
func (h *BaseHandler) SetResponsePool(p *ResponsePool) {
	h.Pool = p
}

// HandleHTTP implements the `Handler`.
func (h BaseHandler) HandleHTTP(req *HTTPRequest) *Response {
	env := req.Envelope()

	var resp *Response
	if h.Pool != nil {
		resp = h.Pool.Response(env.SenderID, env.ConnID)
	} else {
		resp = NewResponse(env.SenderID, env.ConnID)
	}

	resp.Status = http.StatusNoContent
	return resp
}

// HandleJSON implements the `Handler`.
func (BaseHandler) HandleJSON(*JSONRequest) *Response { return nil }

// HandleXML implements the `Handler`.
func (BaseHandler) HandleXML(*XMLRequest) *Response { return nil }

// HandleWebSocket implements the `Handler`.
func (BaseHandler) HandleWebSocket(req *WebSocketRequest) *WebSocketResponse {
	env := req.Envelope()
	return NewWebSocketCloseResponse(env.SenderID, env.ConnID, ClosePolicyViolation)
}

// HandleDisconnect implements the `Handler`.
func (BaseHandler) HandleDisconnect(*Envelope) {}

// Runner drives the receive-dispatch-reply loop over one Connection,
// restarting or shutting down in response to OS signals.
type Runner struct {
	handler Handler
	logger  *Logger
	pool    *ResponsePool

	mu     sync.Mutex
	conn   *Connection
	cancel context.CancelFunc

	stopOnce sync.Once
	stopped  chan struct{}
}

// responsePoolSetter is implemented by a handler (typically by embedding
// *BaseHandler) that wants NewRunner to hand it the Runner's ResponsePool.
type responsePoolSetter interface {
	SetResponsePool(*ResponsePool)
}

// NewRunner returns a Runner dispatching to h over conn, logging through
// logger. If logger is nil, a disabled Logger is used. A ResponsePool is
// created for the hot receive-dispatch-reply loop's allocations and handed
// to h if h accepts one (see responsePoolSetter).
func NewRunner(h Handler, conn *Connection, logger *Logger) *Runner {
	if logger == nil {
		logger = NewLogger("")
		logger.Enabled = false
	}

	rn := &Runner{
		handler: h,
		logger:  logger,
		pool:    NewResponsePool(),
		conn:    conn,
		stopped: make(chan struct{}),
	}

	if s, ok := h.(responsePoolSetter); ok {
		s.SetResponsePool(rn.pool)
	}

	return rn
}

// Pool returns the ResponsePool the Runner hands off to a handler that asks
// for one, so custom handlers can recycle responses the same way
// BaseHandler's default does.
func (rn *Runner) Pool() *ResponsePool {
	return rn.pool
}

// currentConn returns the Connection currently in use, safe to call
// concurrently with Restart.
func (rn *Runner) currentConn() *Connection {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.conn
}

// interruptReceive cancels the context passed to the in-flight Receive, if
// any, so a blocked loop wakes up and re-examines its state. This is a
// self-pipe translated into a cancelable context instead of a literal pipe
// fd.
func (rn *Runner) interruptReceive() {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	if rn.cancel != nil {
		rn.cancel()
	}
}

// Run installs the OS signal handlers and blocks running the
// receive-dispatch-reply loop until Shutdown is called, a signal requests
// shutdown, or the connection is otherwise closed.
func (rn *Runner) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)

	go rn.watchSignals(sigCh, done)

	return rn.loop()
}

// watchSignals translates OS signals into Runner state transitions until
// done is closed (the loop has returned and Run is unwinding).
func (rn *Runner) watchSignals(sigCh chan os.Signal, done chan struct{}) {
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				rn.Restart()
			case syscall.SIGTERM, syscall.SIGINT:
				rn.Shutdown()
			case syscall.SIGUSR1:
				rn.logger.Infoj(map[string]interface{}{"event": "checkpoint"})
			}
		case <-done:
			return
		}
	}
}

// loop is the receive-dispatch-reply loop. The connection is only ever
// closed from here, never from Shutdown directly: that way a shutdown
// requested while a reply is in flight waits for loop to finish sending it
// before the socket goes away.
func (rn *Runner) loop() error {
	for {
		select {
		case <-rn.stopped:
			return rn.closeForShutdown()
		default:
		}

		conn := rn.currentConn()
		if conn.Closed() {
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		rn.mu.Lock()
		rn.cancel = cancel
		rn.mu.Unlock()

		req, err := conn.Receive(ctx)
		cancel()

		if err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				return nil
			}

			if errors.Is(err, context.Canceled) {
				// A restart or shutdown interrupted the blocked receive;
				// the top of the loop will observe the new state.
				continue
			}

			rn.logger.Errorj(map[string]interface{}{
				"event": "transport_error",
				"error": err.Error(),
			})

			continue
		}

		env := req.Envelope()
		rn.logger.Infoj(map[string]interface{}{
			"event":     "receive",
			"sender_id": env.SenderID,
			"conn_id":   env.ConnID,
			"method":    env.Method(),
			"kind":      req.Kind().String(),
		})

		reply := rn.dispatch(req)

		if reply != nil && !conn.Closed() {
			if err := conn.Reply(context.Background(), env.SenderID, reply); err != nil {
				rn.logger.Errorj(map[string]interface{}{"event": "reply_error", "error": err.Error()})
			}
		}

		if resp, ok := reply.(*Response); ok {
			rn.pool.PutResponse(resp)
		}

		select {
		case <-rn.stopped:
			return rn.closeForShutdown()
		default:
		}
	}
}

// closeForShutdown closes the current connection on behalf of a completed
// Shutdown. It runs only on the loop goroutine, after any in-flight reply
// has already been sent, so it never races a reply send against the socket
// being torn down.
func (rn *Runner) closeForShutdown() error {
	conn := rn.currentConn()
	if err := conn.Close(); err != nil {
		rn.logger.Errorj(map[string]interface{}{"event": "shutdown_close_failed", "error": err.Error()})
	}

	return nil
}

// dispatch routes req to the matching Handler method: disconnect notices
// never produce a reply; each remaining variant routes to its Handler
// method; an unrecognised variant is logged and swallowed.
//
// Each case explicitly nil-checks the concrete *Response/*WebSocketResponse
// before returning it as a Reply: returning a typed nil pointer straight
// through the interface would make the caller's `reply != nil` check true
// for a response that is actually absent.
func (rn *Runner) dispatch(req Request) Reply {
	env := req.Envelope()

	if req.IsDisconnect() {
		rn.handler.HandleDisconnect(env)
		return nil
	}

	switch req.Kind() {
	case KindHTTP:
		resp := rn.handler.HandleHTTP(req.(*HTTPRequest))
		if resp == nil {
			return nil
		}
		return resp
	case KindJSON:
		resp := rn.handler.HandleJSON(req.(*JSONRequest))
		if resp == nil {
			return nil
		}
		return resp
	case KindXML:
		resp := rn.handler.HandleXML(req.(*XMLRequest))
		if resp == nil {
			return nil
		}
		return resp
	case KindWebSocket:
		resp := rn.handler.HandleWebSocket(req.(*WebSocketRequest))
		if resp == nil {
			return nil
		}
		return resp
	default:
		rn.logger.Errorj(map[string]interface{}{
			"event":  "unhandled_method",
			"method": env.Method(),
		})
		return nil
	}
}

// Restart replaces the connection with a duplicate opened on fresh sockets,
// and closes the original. Any receive blocked on the old connection is
// interrupted so the loop picks up the new one on its next iteration.
func (rn *Runner) Restart() {
	rn.mu.Lock()
	old := rn.conn
	rn.mu.Unlock()

	dup, err := old.Dup()
	if err != nil {
		rn.logger.Errorj(map[string]interface{}{"event": "restart_failed", "error": err.Error()})
		return
	}

	rn.mu.Lock()
	rn.conn = dup
	rn.mu.Unlock()

	rn.interruptReceive()

	if err := old.Close(); err != nil {
		rn.logger.Errorj(map[string]interface{}{"event": "restart_close_old_failed", "error": err.Error()})
	}
}

// Shutdown requests that the loop exit after replying to any request
// already being dispatched. It only signals the loop and interrupts a
// blocked receive; the connection itself is closed by the loop goroutine,
// once it has finished sending any in-flight reply, so a signal-triggered
// Shutdown can never race a reply send against the socket being torn down.
func (rn *Runner) Shutdown() {
	rn.stopOnce.Do(func() { close(rn.stopped) })

	rn.interruptReceive()
}
