// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonreader

import "github.com/creachadair/odatajson/ast"

// A nodeQueue buffers nodes read ahead of the consumer, in input order.
type nodeQueue struct {
	p   *parser
	buf []Node
	err error // set by abort
}

// abort discards buffered nodes, and makes err the result of every later
// pull or peek.
func (q *nodeQueue) abort(err error) { q.buf, q.err = nil, err }

// pull consumes the next node, from the buffer if possible.
func (q *nodeQueue) pull() (Node, error) {
	if q.err != nil {
		return Node{}, q.err
	}
	if len(q.buf) != 0 {
		n := q.buf[0]
		q.buf = q.buf[1:]
		return n, nil
	}
	return q.p.next()
}

// peek returns the next node without consuming it.
func (q *nodeQueue) peek() (Node, error) {
	if q.err != nil {
		return Node{}, q.err
	}
	if len(q.buf) == 0 {
		n, err := q.p.next()
		if err != nil {
			return Node{}, err
		}
		q.buf = append(q.buf, n)
	}
	return q.buf[0], nil
}

// unread pushes nodes back onto the front of the queue.
func (q *nodeQueue) unread(nodes ...Node) {
	q.buf = append(append(make([]Node, 0, len(nodes)+len(q.buf)), nodes...), q.buf...)
}

// lookahead collects the members of the object starting at the next node and
// restores them to the queue.
func (q *nodeQueue) lookahead() (*Members, error) {
	start, err := q.peek()
	if err != nil {
		return nil, err
	} else if start.Type != StartObject {
		return nil, Unexpected(start, StartObject.String())
	}
	q.pull() // start, already buffered
	nodes, m, err := collectMembers(q.pull)
	if err != nil {
		return nil, err
	}
	q.unread(append([]Node{start}, nodes...)...)
	return m, nil
}

// Members is the materialized content of a single object: the names of its
// members in input order, and the nodes of each member's value.
type Members struct {
	names  []string
	values [][]Node
	index  map[string]int // name → offset of first occurrence
}

// Len reports the number of members, including repeated names.
func (m *Members) Len() int { return len(m.names) }

// Names returns the member names in input order.
func (m *Members) Names() []string { return m.names }

// Has reports whether there is a member with the given name.
func (m *Members) Has(name string) bool { _, ok := m.index[name]; return ok }

// Find returns the value of the first member with the given name. If there is
// no such member, Find reports ErrNotFound.
func (m *Members) Find(name string) (ast.Value, error) {
	i, ok := m.index[name]
	if !ok {
		return nil, &lookupError{name: name}
	}
	nodes := m.values[i]
	return decode(func() (Node, error) {
		if len(nodes) == 0 {
			return Node{Type: EndOfInput}, nil
		}
		n := nodes[0]
		nodes = nodes[1:]
		return n, nil
	})
}

type lookupError struct{ name string }

func (e *lookupError) Error() string { return "member " + e.name + " not found" }
func (e *lookupError) Unwrap() error { return ErrNotFound }

// collectMembers consumes the members of an object whose start has already
// been read, through its matching end. It returns all the nodes consumed.
func collectMembers(pull func() (Node, error)) ([]Node, *Members, error) {
	m := &Members{index: make(map[string]int)}
	var nodes []Node
	level, cur := 0, -1
	for {
		n, err := pull()
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
		if level == 0 {
			switch n.Type {
			case EndObject:
				return nodes, m, nil
			case Property:
				m.names = append(m.names, n.Name)
				m.values = append(m.values, nil)
				cur = len(m.names) - 1
				if _, ok := m.index[n.Name]; !ok {
					m.index[n.Name] = cur
				}
				continue
			case EndOfInput:
				return nil, nil, Unexpected(n, EndObject.String())
			}
		}
		m.values[cur] = append(m.values[cur], n)
		switch n.Type {
		case StartObject, StartArray:
			level++
		case EndObject, EndArray:
			level--
		}
	}
}
