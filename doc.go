/*
Package mongrel2 implements a handler-side runtime for the Mongrel2 web
server: it decodes Mongrel2's ZeroMQ wire protocol, classifies each request
into HTTP, JSON, XML, WebSocket, or a disconnect notice, and drives a
receive-dispatch-reply loop against a user-supplied Handler.

Handler

An application implements the Handler capability set, embedding BaseHandler
to inherit its defaults for whichever variants it doesn't care about:

	type echoHandler struct {
		mongrel2.BaseHandler
	}

	func (echoHandler) HandleHTTP(req *mongrel2.HTTPRequest) *mongrel2.Response {
		env := req.Envelope()
		resp := mongrel2.NewResponse(env.SenderID, env.ConnID)
		resp.Status = 200
		return resp
	}

Connection and transport

A Connection owns the pair of ZeroMQ-shaped sockets a handler process talks
to Mongrel2 with. This package depends only on the abstract Socket
interface; binding it to real ZeroMQ PULL/PUB sockets (via zmq4, goczmq, or
similar) is left to the caller:

	conn, err := mongrel2.Open(transport, cfg.AppID, cfg.SendSpec, cfg.RecvSpec, nil)
	if err != nil {
		log.Fatal(err)
	}

	runner := mongrel2.NewRunner(echoHandler{}, conn, mongrel2.NewLogger(cfg.AppID))
	log.Fatal(runner.Run())

Runner installs SIGHUP/SIGTERM/SIGINT/SIGUSR1 handlers for restart,
shutdown, and checkpoint logging, and restores the defaults on exit.
*/
package mongrel2
