package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrAccessDenied is returned when the wallet's owner declines an account access request.
var ErrAccessDenied = errors.New("user denied account access")

// Authorizer decides whether a wallet's accounts may be exposed to the voting client.
type Authorizer interface {
	// Authorize returns nil when access to accounts is granted and ErrAccessDenied (or an error
	// wrapping it) when it is declined.
	Authorize(ctx context.Context, accounts []common.Address) error
}

// AuthorizerFunc adapts a plain function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, accounts []common.Address) error

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, accounts []common.Address) error {
	return f(ctx, accounts)
}

// AutoAuthorize grants every request without asking.
func AutoAuthorize() Authorizer {
	return AuthorizerFunc(func(context.Context, []common.Address) error { return nil })
}

// DenyAuthorization declines every request.
func DenyAuthorization() Authorizer {
	return AuthorizerFunc(func(context.Context, []common.Address) error { return ErrAccessDenied })
}

// PromptAuthorizer asks the operator on out and reads a y/n answer from in. Anything other than
// "y" or "yes" declines the request.
//
// The returned Authorizer may be used any number of times. Requests are answered one at a time,
// and a line typed while no prompt was shown is discarded rather than applied to the next request.
func PromptAuthorizer(in io.Reader, out io.Writer) Authorizer {
	return &promptAuthorizer{
		in:      bufio.NewReader(in),
		out:     out,
		turn:    make(chan struct{}, 1),
		reads:   make(chan struct{}, 1),
		answers: make(chan promptAnswer, 1),
	}
}

type promptAuthorizer struct {
	in  *bufio.Reader
	out io.Writer

	// turn serializes requests. The fields below it are only touched while holding it.
	turn chan struct{}
	// pending is set while a read requested by an earlier prompt has not been answered.
	pending bool
	// ended is set once in returned an error.
	ended bool

	startOnce sync.Once
	reads     chan struct{}
	answers   chan promptAnswer
}

type promptAnswer struct {
	line string
	err  error
}

// readLines is the only reader of p.in. It reads one line per request and stops after the first
// read error.
func (p *promptAuthorizer) readLines() {
	for range p.reads {
		line, err := p.in.ReadString('\n')
		p.answers <- promptAnswer{line: line, err: err}
		if err != nil {
			return
		}
	}
}

func (p *promptAuthorizer) Authorize(ctx context.Context, accounts []common.Address) error {
	select {
	case p.turn <- struct{}{}:
		defer func() { <-p.turn }()
	case <-ctx.Done():
		return ctx.Err()
	}

	p.startOnce.Do(func() { go p.readLines() })

	if p.pending {
		// A line answering an abandoned prompt.
		select {
		case a := <-p.answers:
			p.pending = false
			p.ended = a.err != nil
		default:
		}
	}
	if p.ended {
		return ErrAccessDenied
	}

	hexes := make([]string, 0, len(accounts))
	for _, a := range accounts {
		hexes = append(hexes, a.Hex())
	}

	if _, err := fmt.Fprintf(p.out, "Allow the voting client to use %s? [y/N]: ", strings.Join(hexes, ", ")); err != nil {
		return fmt.Errorf("failed to write account access prompt: %w", err)
	}

	if !p.pending {
		p.reads <- struct{}{}
		p.pending = true
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a := <-p.answers:
		p.pending = false
		if a.err != nil {
			p.ended = true
			if !errors.Is(a.err, io.EOF) {
				return fmt.Errorf("failed to read account access answer: %w", a.err)
			}
		}

		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return nil
		default:
			return ErrAccessDenied
		}
	}
}
