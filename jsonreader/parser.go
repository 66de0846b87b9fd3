// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonreader

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/creachadair/odatajson"
)

// A parser converts tokens from a TokenSource into nodes, enforcing the JSON
// grammar and the nesting depth limit. It holds one token at a time; it does
// not buffer nodes.
type parser struct {
	src      odatajson.TokenSource
	maxDepth int
	stk      []frame
	done     bool  // the root value is complete
	err      error // sticky error
}

// frame records the parse state of one open object or array.
type frame struct {
	scope     Scope
	n         int  // members or elements started so far
	wantValue bool // for objects: a member name has been read
}

func newParser(src odatajson.TokenSource, maxDepth int) *parser {
	return &parser{src: src, maxDepth: maxDepth}
}

// fatal wraps an error that is not a syntax error, to pass it through the
// recovery handler.
type fatal struct{ error }

func (f fatal) Unwrap() error { return f.error }

func (p *parser) recoverParseError(errp *error) {
	if perr := recover(); perr != nil {
		switch err := perr.(type) {
		case *SyntaxError:
			*errp = err
		case fatal:
			*errp = err.error
		default:
			panic(perr)
		}
	}
}

// next returns the next node of the input. After an error, next reports the
// same error on every subsequent call.
func (p *parser) next() (_ Node, err error) {
	if p.err != nil {
		return Node{}, p.err
	}
	defer func() {
		if err != nil {
			p.err = err
		}
	}()
	defer p.recoverParseError(&err)

	if len(p.stk) == 0 {
		if err := p.nextToken(); err == io.EOF {
			return Node{Type: EndOfInput, Loc: p.src.Location()}, nil
		} else if err != nil {
			p.syntaxError(err, "%v", err)
		}
		if p.done {
			p.syntaxError(nil, "unexpected %v after end of value", p.src.Token())
		}
		return p.element(), nil
	}

	top := &p.stk[len(p.stk)-1]
	switch top.scope {
	case ObjectScope:
		if top.wantValue {
			top.wantValue = false
			p.advance()
			return p.element(), nil
		}
		var tok odatajson.Token
		if top.n == 0 {
			tok = p.advance(odatajson.RBrace, odatajson.String)
		} else if tok = p.advance(odatajson.RBrace, odatajson.Comma); tok == odatajson.Comma {
			tok = p.advance(odatajson.String)
		}
		if tok == odatajson.RBrace {
			return p.pop(EndObject), nil
		}
		node := p.node(Property)
		name, err := odatajson.Unquote(p.src.Text())
		if err != nil {
			p.syntaxError(err, "invalid member name: %v", err)
		}
		node.Name = string(name)
		p.advance(odatajson.Colon)
		top.n++
		top.wantValue = true
		return node, nil

	default: // ArrayScope
		var tok odatajson.Token
		if top.n == 0 {
			tok = p.advance()
		} else if tok = p.advance(odatajson.RSquare, odatajson.Comma); tok == odatajson.Comma {
			tok = p.advance()
		} else {
			return p.pop(EndArray), nil
		}
		if tok == odatajson.RSquare && top.n == 0 {
			return p.pop(EndArray), nil
		}
		top.n++
		return p.element(), nil
	}
}

// element returns the node for the start of a value at the current token.
func (p *parser) element() Node {
	switch tok := p.src.Token(); tok {
	case odatajson.LBrace:
		return p.push(ObjectScope, StartObject)
	case odatajson.LSquare:
		return p.push(ArrayScope, StartArray)
	case odatajson.RBrace, odatajson.RSquare, odatajson.Comma, odatajson.Colon:
		p.syntaxError(nil, "unexpected %v", tok)
	}
	if !p.src.Token().IsPrimitive() {
		p.syntaxError(nil, "unknown token %v", p.src.Token())
	}
	node := p.node(Value)
	v, err := p.src.Value()
	if err != nil {
		p.syntaxError(err, "%v", err)
	}
	node.Value = v
	if tok := p.src.Token(); tok == odatajson.Integer || tok == odatajson.Number {
		node.Text = string(p.src.Text())
	}
	p.done = len(p.stk) == 0
	return node
}

func (p *parser) push(scope Scope, nt NodeType) Node {
	if p.maxDepth > 0 && len(p.stk) >= p.maxDepth {
		panic(fatal{fmt.Errorf("%w: limit %d at %s",
			ErrNestingDepthExceeded, p.maxDepth, p.src.Location().First)})
	}
	node := p.node(nt)
	p.stk = append(p.stk, frame{scope: scope})
	return node
}

func (p *parser) pop(nt NodeType) Node {
	node := p.node(nt)
	p.stk = p.stk[:len(p.stk)-1]
	p.done = len(p.stk) == 0
	return node
}

func (p *parser) node(nt NodeType) Node {
	return Node{Type: nt, Token: p.src.Token(), Loc: p.src.Location()}
}

func (p *parser) nextToken() error { return p.src.Next() }

// advance reads the next token, and reports a syntax error if it is not one
// of the specified tokens. If no tokens are given, any token is accepted.
func (p *parser) advance(tokens ...odatajson.Token) odatajson.Token {
	if err := p.nextToken(); err != nil {
		p.syntaxError(err, "%v", tokLabel(tokens, "error: "+err.Error()))
	}
	tok := p.src.Token()
	if len(tokens) != 0 && !slices.Contains(tokens, tok) {
		p.syntaxError(nil, "%v", tokLabel(tokens, tok))
	}
	return tok
}

func (p *parser) syntaxError(err error, msg string, args ...any) {
	panic(&SyntaxError{
		Location: p.src.Location().First,
		Message:  fmt.Sprintf(msg, args...),
		err:      err,
	})
}

// tokLabel makes a human-readable summary string for the given token types.
func tokLabel(tokens []odatajson.Token, got any) string {
	if len(tokens) == 0 {
		return fmt.Sprintf("expected more input, got %v", got)
	}
	var exp string
	if len(tokens) == 1 {
		exp = tokens[0].String()
	} else {
		last := len(tokens) - 1
		ss := make([]string, last)
		for i, tok := range tokens[:last] {
			ss[i] = tok.String()
		}
		exp = strings.Join(ss, ", ") + " or " + tokens[last].String()
	}
	return fmt.Sprintf("expected %s, got %v", exp, got)
}
