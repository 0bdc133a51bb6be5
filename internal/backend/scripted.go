package backend

import (
	"context"
	"sync"
)

// Reply is one scripted outcome for a [ScriptedGenerator] call.
type Reply struct {
	Response string
	Err      error
}

// ScriptedGenerator implements [Generator] without calling any provider.
//
// When Respond is set it is consulted for every call; otherwise replies are
// consumed from Script in order. All received requests are recorded so tests
// can assert on the exact instructions sent. Safe for concurrent use.
type ScriptedGenerator struct {
	// Respond, when non-nil, computes the outcome for each request.
	Respond func(req Request) (string, error)

	// Script is a queue of canned replies, consumed front to back.
	Script []Reply

	mu       sync.Mutex
	requests []Request
}

// Generate implements [Generator].
func (g *ScriptedGenerator) Generate(_ context.Context, req Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	respond := g.Respond
	var reply Reply
	scripted := false
	if respond == nil && len(g.Script) > 0 {
		reply = g.Script[0]
		g.Script = g.Script[1:]
		scripted = true
	}
	g.mu.Unlock()

	if respond != nil {
		return respond(req)
	}
	if scripted {
		return reply.Response, reply.Err
	}
	return "", &ProviderError{
		Provider:  "scripted",
		Retryable: false,
		Detail:    "script exhausted",
	}
}

// Requests returns a copy of every request received so far.
func (g *ScriptedGenerator) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Request, len(g.requests))
	copy(out, g.requests)
	return out
}
