// Command echohandler is a runnable example wiring Config, Connection, and
// Runner together. It does not speak real ZeroMQ — transport.go's Socket is
// an abstract seam, and no ZeroMQ binding exists in this module (see
// DESIGN.md) — so this example plugs in an in-memory channelTransport and
// feeds it one synthetic HTTP frame, to demonstrate the wiring a real
// deployment would perform against a genuine ZeroMQ PUSH/PUB pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	mongrel2 "github.com/mongrel2/handler"
)

// channelTransport opens a ChannelSocket per spec, keyed by endpoint, so the
// same spec string always resolves to the same in-memory socket.
type channelTransport struct {
	sockets map[string]*mongrel2.ChannelSocket
}

func newChannelTransport() *channelTransport {
	return &channelTransport{sockets: make(map[string]*mongrel2.ChannelSocket)}
}

func (t *channelTransport) socket(spec string) *mongrel2.ChannelSocket {
	s, ok := t.sockets[spec]
	if !ok {
		s = mongrel2.NewChannelSocket(16)
		t.sockets[spec] = s
	}
	return s
}

func (t *channelTransport) OpenReply(spec, identity string) (mongrel2.Socket, error) {
	return t.socket(spec), nil
}

func (t *channelTransport) OpenRequest(spec string) (mongrel2.Socket, error) {
	return t.socket(spec), nil
}

// echoHandler answers every HTTP request with its path echoed back as the
// body, and defers everything else to mongrel2.BaseHandler.
type echoHandler struct {
	mongrel2.BaseHandler
}

func (h *echoHandler) HandleHTTP(req *mongrel2.HTTPRequest) *mongrel2.Response {
	env := req.Envelope()

	var resp *mongrel2.Response
	if h.Pool != nil {
		resp = h.Pool.Response(env.SenderID, env.ConnID)
	} else {
		resp = mongrel2.NewResponse(env.SenderID, env.ConnID)
	}

	resp.Status = 200
	resp.Header.Set("Content-Type", "text/plain")
	resp.Body = newStringBody(fmt.Sprintf("echo: %s\n", env.Path))
	return resp
}

func main() {
	configPath := flag.String("config", "", "path to a JSON/TOML/YAML handler config file")
	appID := flag.String("app-id", "echo", "sender identity for the reply socket")
	sendSpec := flag.String("send-spec", "inproc://echo-send", "reply socket endpoint")
	recvSpec := flag.String("recv-spec", "inproc://echo-recv", "request socket endpoint")
	flag.Parse()

	var cfg *mongrel2.Config
	var err error
	if *configPath != "" {
		cfg, err = mongrel2.LoadConfigFile(*configPath)
	} else {
		cfg, err = mongrel2.ResolveConfig(nil, *appID, *sendSpec, *recvSpec)
	}
	if err != nil {
		log.Fatalf("echohandler: loading config: %v", err)
	}

	transport := newChannelTransport()
	conn, err := mongrel2.Open(transport, cfg.AppID, cfg.SendSpec, cfg.RecvSpec, nil)
	if err != nil {
		log.Fatalf("echohandler: opening connection: %v", err)
	}

	logger := mongrel2.NewLogger(cfg.AppID)
	runner := mongrel2.NewRunner(&echoHandler{}, conn, logger)

	go feedDemoFrame(transport, cfg, runner)

	if err := runner.Run(); err != nil {
		log.Fatalf("echohandler: run: %v", err)
	}
}

// feedDemoFrame injects one synthetic HTTP frame, prints the reply it
// provokes, and then shuts the runner down, so `go run` exits instead of
// blocking forever on a transport with no real Mongrel2 on the other end.
func feedDemoFrame(t *channelTransport, cfg *mongrel2.Config, runner *mongrel2.Runner) {
	time.Sleep(50 * time.Millisecond)

	frame := []byte("demo-sender 1 /hello 31:4:PATH,6:/hello,6:METHOD,3:GET,}0:,")
	t.socket(cfg.RecvSpec).Inject(frame)

	out, err := t.socket(cfg.SendSpec).Recv(context.Background())
	if err == nil {
		fmt.Print(string(out))
	}

	runner.Shutdown()
}

// stringBody adapts a string to the io.Reader+Len() capability Response's
// content-length resolution expects.
type stringBody struct {
	s   string
	pos int
}

func newStringBody(s string) *stringBody { return &stringBody{s: s} }

func (b *stringBody) Len() int { return len(b.s) - b.pos }

func (b *stringBody) Read(p []byte) (int, error) {
	if b.pos >= len(b.s) {
		return 0, io.EOF
	}
	n := copy(p, b.s[b.pos:])
	b.pos += n
	return n, nil
}
