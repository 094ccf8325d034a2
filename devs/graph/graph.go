// Package graph implements the Model Graph (spec §4.B): the hierarchical
// coupled-model structure that the Coordinator routes events through.
// Nodes live in an arena (a flat slice indexed by NodeID) rather than as
// a pointer tree, following the spec's Design Notes and the field
// layout of VLE's original vpz::Model/CoupledModel (see
// original_source/src/vle/vpz/Model.hpp) without that type's XML
// (de)serialization machinery. An arena keeps Remove and Executive-driven
// structural mutation (spec §4.H) cheap and avoids dangling-pointer
// bookkeeping: a removed node's slot is simply marked dead.
package graph

import (
	"fmt"
	"strings"

	"github.com/vle-kernel/vle/devs/kerrors"
	"github.com/vle-kernel/vle/devs/loader"
)

// NodeID is an arena index. The root is NodeID 0; the root's parent is
// the sentinel noParent (-1).
type NodeID int

// noParent marks the root coupled model, whose parent has no node.
const noParent NodeID = -1

// NodeKind distinguishes atomic leaves from coupled interior nodes.
type NodeKind int

const (
	Atomic NodeKind = iota
	Coupled
)

func (k NodeKind) String() string {
	if k == Atomic {
		return "atomic"
	}
	return "coupled"
}

// connEndpoint names a (node, port) pair on one side of a connection.
type connEndpoint struct {
	node NodeID
	port string
}

// node is one arena slot. live is false once Remove has torn it down;
// dead slots are never reused so existing NodeID values never alias a
// different model.
type node struct {
	live bool
	kind NodeKind
	name string
	path string
	parent NodeID
	children []NodeID

	inputPorts  map[string]bool
	outputPorts map[string]bool

	// descriptor identifies the loadable unit backing an Atomic node.
	// Zero value for Coupled nodes.
	descriptor loader.Descriptor

	// Connections, only meaningful when kind == Coupled: this node is the
	// coupled parent whose connection table these live in.
	internal    map[connEndpoint][]connEndpoint // (childA,outport) -> [(childB,inport)]
	externalIn  map[connEndpoint][]connEndpoint // (ownInport) -> [(child,inport)]  (port-only key, node==self)
	externalOut map[connEndpoint][]connEndpoint // (child,outport) -> [(ownOutport)]
}

// Graph is the Model Graph: an arena of nodes plus a root coupled model.
type Graph struct {
	nodes []node
	root  NodeID
}

// NewGraph constructs a Graph with a single root coupled model named
// rootName (path "/"+rootName).
func NewGraph(rootName string) *Graph {
	g := &Graph{}
	g.root = g.alloc(node{
		live:        true,
		kind:        Coupled,
		name:        rootName,
		path:        "/" + rootName,
		parent:      noParent,
		inputPorts:  map[string]bool{},
		outputPorts: map[string]bool{},
		internal:    map[connEndpoint][]connEndpoint{},
		externalIn:  map[connEndpoint][]connEndpoint{},
		externalOut: map[connEndpoint][]connEndpoint{},
	})
	return g
}

// Root returns the root coupled model's NodeID.
func (g *Graph) Root() NodeID { return g.root }

func (g *Graph) alloc(n node) NodeID {
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

func (g *Graph) get(id NodeID) (*node, error) {
	if int(id) < 0 || int(id) >= len(g.nodes) || !g.nodes[id].live {
		return nil, kerrors.New(kerrors.NotFound, "graph", fmt.Errorf("no such model %d", id))
	}
	return &g.nodes[id], nil
}

// Kind reports whether id is Atomic or Coupled.
func (g *Graph) Kind(id NodeID) (NodeKind, error) {
	n, err := g.get(id)
	if err != nil {
		return 0, err
	}
	return n.kind, nil
}

// Path returns id's '/'-separated path.
func (g *Graph) Path(id NodeID) (string, error) {
	n, err := g.get(id)
	if err != nil {
		return "", err
	}
	return n.path, nil
}

// Descriptor returns the loader.Descriptor backing an Atomic node.
func (g *Graph) Descriptor(id NodeID) (loader.Descriptor, error) {
	n, err := g.get(id)
	if err != nil {
		return loader.Descriptor{}, err
	}
	if n.kind != Atomic {
		return loader.Descriptor{}, kerrors.New(kerrors.NotFound, "graph.Descriptor", fmt.Errorf("%s is not atomic", n.path))
	}
	return n.descriptor, nil
}

// Children returns the immediate children of a Coupled node.
func (g *Graph) Children(id NodeID) ([]NodeID, error) {
	n, err := g.get(id)
	if err != nil {
		return nil, err
	}
	if n.kind != Coupled {
		return nil, nil
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out, nil
}

func (g *Graph) siblingNameTaken(parent NodeID, name string) bool {
	p := &g.nodes[parent]
	for _, c := range p.children {
		if g.nodes[c].live && g.nodes[c].name == name {
			return true
		}
	}
	return false
}

func (g *Graph) addChild(parent NodeID, name string, kind NodeKind, descriptor loader.Descriptor) (NodeID, error) {
	p, err := g.get(parent)
	if err != nil {
		return 0, err
	}
	if p.kind != Coupled {
		return 0, kerrors.New(kerrors.BadConnection, "graph.add", fmt.Errorf("%s is not coupled", p.path))
	}
	if g.siblingNameTaken(parent, name) {
		return 0, kerrors.New(kerrors.NameConflict, "graph.add", fmt.Errorf("sibling %q already exists under %s", name, p.path))
	}

	child := node{
		live:        true,
		kind:        kind,
		name:        name,
		path:        p.path + "/" + name,
		parent:      parent,
		inputPorts:  map[string]bool{},
		outputPorts: map[string]bool{},
		descriptor:  descriptor,
	}
	if kind == Coupled {
		child.internal = map[connEndpoint][]connEndpoint{}
		child.externalIn = map[connEndpoint][]connEndpoint{}
		child.externalOut = map[connEndpoint][]connEndpoint{}
	}
	id := g.alloc(child)
	// p may have been invalidated by append-growth of g.nodes via alloc;
	// re-fetch.
	g.nodes[parent].children = append(g.nodes[parent].children, id)
	return id, nil
}

// AddAtomic creates an atomic model named name under parent, backed by
// descriptor. Fails with NameConflict if a sibling of that name exists.
func (g *Graph) AddAtomic(parent NodeID, name string, descriptor loader.Descriptor) (NodeID, error) {
	return g.addChild(parent, name, Atomic, descriptor)
}

// AddCoupled creates a coupled model named name under parent.
func (g *Graph) AddCoupled(parent NodeID, name string) (NodeID, error) {
	return g.addChild(parent, name, Coupled, loader.Descriptor{})
}

// Remove recursively tears down id and its children, severing every
// connection that referenced any of them. Fails with NotFound if id is
// absent. Removing the root is refused.
func (g *Graph) Remove(id NodeID) error {
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if id == g.root {
		return kerrors.New(kerrors.BadConnection, "graph.Remove", fmt.Errorf("cannot remove the root model"))
	}

	for _, c := range n.children {
		if g.nodes[c].live {
			_ = g.Remove(c)
		}
	}

	if n.parent != noParent {
		g.severConnectionsInvolving(n.parent, id)
		parent := &g.nodes[n.parent]
		for i, c := range parent.children {
			if c == id {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}

	n.live = false
	n.children = nil
	n.inputPorts = nil
	n.outputPorts = nil
	n.internal = nil
	n.externalIn = nil
	n.externalOut = nil
	return nil
}

// severConnectionsInvolving drops every connection entry in the coupled
// node owner that names child on either side.
func (g *Graph) severConnectionsInvolving(owner NodeID, child NodeID) {
	o := &g.nodes[owner]
	prune := func(table map[connEndpoint][]connEndpoint, ownerIsSelf bool) {
		for k, dsts := range table {
			if !ownerIsSelf && k.node == child {
				delete(table, k)
				continue
			}
			kept := dsts[:0]
			for _, d := range dsts {
				if d.node != child {
					kept = append(kept, d)
				}
			}
			if len(kept) == 0 {
				delete(table, k)
			} else {
				table[k] = kept
			}
		}
	}
	prune(o.internal, false)
	prune(o.externalOut, false)
	// externalIn keys are port-only (owner's own port); only prune dsts.
	for k, dsts := range o.externalIn {
		kept := dsts[:0]
		for _, d := range dsts {
			if d.node != child {
				kept = append(kept, d)
			}
		}
		if len(kept) == 0 {
			delete(o.externalIn, k)
		} else {
			o.externalIn[k] = kept
		}
	}
}

// AddInputPort declares an input port on id.
func (g *Graph) AddInputPort(id NodeID, name string) error {
	n, err := g.get(id)
	if err != nil {
		return err
	}
	n.inputPorts[name] = true
	return nil
}

// AddOutputPort declares an output port on id.
func (g *Graph) AddOutputPort(id NodeID, name string) error {
	n, err := g.get(id)
	if err != nil {
		return err
	}
	n.outputPorts[name] = true
	return nil
}

// RemoveInputPort removes an input port from id. Every connection
// terminating on that port, on id's parent's connection tables (and, for
// a Coupled id, id's own externalIn table), is removed first (port
// removal cascades to connection removal, per spec §4.B).
func (g *Graph) RemoveInputPort(id NodeID, name string) error {
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if !n.inputPorts[name] {
		return kerrors.New(kerrors.NotFound, "graph.RemoveInputPort", fmt.Errorf("%s has no input port %q", n.path, name))
	}
	if n.parent != noParent {
		g.prunePortOnParent(n.parent, id, name, true)
	}
	if n.kind == Coupled {
		delete(n.externalIn, connEndpoint{port: name})
	}
	delete(n.inputPorts, name)
	return nil
}

// RemoveOutputPort removes an output port from id, cascading connection
// removal as RemoveInputPort does.
func (g *Graph) RemoveOutputPort(id NodeID, name string) error {
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if !n.outputPorts[name] {
		return kerrors.New(kerrors.NotFound, "graph.RemoveOutputPort", fmt.Errorf("%s has no output port %q", n.path, name))
	}
	if n.parent != noParent {
		g.prunePortOnParent(n.parent, id, name, false)
	}
	if n.kind == Coupled {
		for k, dsts := range n.externalOut {
			n.externalOut[k] = removeEndpoint(dsts, connEndpoint{port: name})
		}
		compactEmpty(n.externalOut)
	}
	delete(n.outputPorts, name)
	return nil
}

func (g *Graph) prunePortOnParent(parent NodeID, child NodeID, port string, isInput bool) {
	p := &g.nodes[parent]
	ep := connEndpoint{node: child, port: port}
	if isInput {
		// child's input port appears as a destination anywhere.
		for k, dsts := range p.internal {
			p.internal[k] = removeEndpoint(dsts, ep)
		}
		for k, dsts := range p.externalIn {
			p.externalIn[k] = removeEndpoint(dsts, ep)
		}
	} else {
		// child's output port appears as a source key, or destination in externalOut.
		delete(p.internal, ep)
		delete(p.externalOut, ep)
	}
	compactEmpty(p.internal)
	compactEmpty(p.externalIn)
	compactEmpty(p.externalOut)
}

func removeEndpoint(dsts []connEndpoint, target connEndpoint) []connEndpoint {
	kept := dsts[:0]
	for _, d := range dsts {
		if d != target {
			kept = append(kept, d)
		}
	}
	return kept
}

func compactEmpty(table map[connEndpoint][]connEndpoint) {
	for k, v := range table {
		if len(v) == 0 {
			delete(table, k)
		}
	}
}

// ConnectInternal wires src's output port sp to dst's input port dp.
// src and dst must be distinct siblings under the same coupled parent.
func (g *Graph) ConnectInternal(parent NodeID, src NodeID, sp string, dst NodeID, dp string) error {
	p, srcN, dstN, err := g.checkSiblings(parent, src, dst)
	if err != nil {
		return err
	}
	if !srcN.outputPorts[sp] {
		return badConn("ConnectInternal", "%s has no output port %q", srcN.path, sp)
	}
	if !dstN.inputPorts[dp] {
		return badConn("ConnectInternal", "%s has no input port %q", dstN.path, dp)
	}
	key := connEndpoint{node: src, port: sp}
	p.internal[key] = append(p.internal[key], connEndpoint{node: dst, port: dp})
	return nil
}

// ConnectExternalIn wires parent's own input port sp to child dst's
// input port dp (fan-in from the coupled model's boundary inward).
func (g *Graph) ConnectExternalIn(parent NodeID, sp string, dst NodeID, dp string) error {
	p, err := g.get(parent)
	if err != nil {
		return err
	}
	if p.kind != Coupled {
		return badConn("ConnectExternalIn", "%s is not coupled", p.path)
	}
	if !p.inputPorts[sp] {
		return badConn("ConnectExternalIn", "%s has no input port %q", p.path, sp)
	}
	dstN, err := g.get(dst)
	if err != nil {
		return err
	}
	if dstN.parent != parent {
		return badConn("ConnectExternalIn", "%s is not a child of %s", dstN.path, p.path)
	}
	if !dstN.inputPorts[dp] {
		return badConn("ConnectExternalIn", "%s has no input port %q", dstN.path, dp)
	}
	key := connEndpoint{port: sp}
	p.externalIn[key] = append(p.externalIn[key], connEndpoint{node: dst, port: dp})
	return nil
}

// ConnectExternalOut wires child src's output port sp to parent's own
// output port dp (fan-out from inside the coupled model to its
// boundary).
func (g *Graph) ConnectExternalOut(parent NodeID, src NodeID, sp string, dp string) error {
	p, err := g.get(parent)
	if err != nil {
		return err
	}
	if p.kind != Coupled {
		return badConn("ConnectExternalOut", "%s is not coupled", p.path)
	}
	if !p.outputPorts[dp] {
		return badConn("ConnectExternalOut", "%s has no output port %q", p.path, dp)
	}
	srcN, err := g.get(src)
	if err != nil {
		return err
	}
	if srcN.parent != parent {
		return badConn("ConnectExternalOut", "%s is not a child of %s", srcN.path, p.path)
	}
	if !srcN.outputPorts[sp] {
		return badConn("ConnectExternalOut", "%s has no output port %q", srcN.path, sp)
	}
	key := connEndpoint{node: src, port: sp}
	p.externalOut[key] = append(p.externalOut[key], connEndpoint{port: dp})
	return nil
}

func (g *Graph) checkSiblings(parent, a, b NodeID) (*node, *node, *node, error) {
	p, err := g.get(parent)
	if err != nil {
		return nil, nil, nil, err
	}
	if p.kind != Coupled {
		return nil, nil, nil, badConn("graph.connect", "%s is not coupled", p.path)
	}
	if a == b {
		return nil, nil, nil, badConn("graph.connect", "%s: no self-loop internal connection", p.path)
	}
	an, err := g.get(a)
	if err != nil {
		return nil, nil, nil, err
	}
	bn, err := g.get(b)
	if err != nil {
		return nil, nil, nil, err
	}
	if an.parent != parent || bn.parent != parent {
		return nil, nil, nil, badConn("graph.connect", "both endpoints must be children of %s", p.path)
	}
	return p, an, bn, nil
}

// Disconnect removes a previously established internal connection.
func (g *Graph) Disconnect(parent NodeID, src NodeID, sp string, dst NodeID, dp string) error {
	p, err := g.get(parent)
	if err != nil {
		return err
	}
	key := connEndpoint{node: src, port: sp}
	target := connEndpoint{node: dst, port: dp}
	before := len(p.internal[key])
	p.internal[key] = removeEndpoint(p.internal[key], target)
	if len(p.internal[key]) == before {
		return badConn("Disconnect", "no connection %s:%s -> %s:%s", nodePath(g, src), sp, nodePath(g, dst), dp)
	}
	compactEmpty(p.internal)
	return nil
}

func nodePath(g *Graph, id NodeID) string {
	p, err := g.Path(id)
	if err != nil {
		return fmt.Sprintf("<invalid %d>", id)
	}
	return p
}

func badConn(op, format string, args ...any) error {
	return kerrors.New(kerrors.BadConnection, op, fmt.Errorf(format, args...))
}

// Find looks up a model by its '/'-separated path, e.g. "/net/nodeA".
func (g *Graph) Find(path string) (NodeID, error) {
	path = strings.TrimSuffix(path, "/")
	for i := range g.nodes {
		if g.nodes[i].live && g.nodes[i].path == path {
			return NodeID(i), nil
		}
	}
	return 0, kerrors.New(kerrors.NotFound, "graph.Find", fmt.Errorf("no model at path %q", path))
}

// InternalTargets returns the (child, inputPort) destinations wired from
// (src, sourcePort) within the internal connection table of parent.
func (g *Graph) InternalTargets(parent NodeID, src NodeID, sourcePort string) ([]struct {
	Node NodeID
	Port string
}, error) {
	p, err := g.get(parent)
	if err != nil {
		return nil, err
	}
	dsts := p.internal[connEndpoint{node: src, port: sourcePort}]
	out := make([]struct {
		Node NodeID
		Port string
	}, len(dsts))
	for i, d := range dsts {
		out[i] = struct {
			Node NodeID
			Port string
		}{d.node, d.port}
	}
	return out, nil
}

// ExternalOutTargets returns the parent's own output ports wired from
// child src's output port sourcePort (the externalOut table).
func (g *Graph) ExternalOutTargets(parent NodeID, src NodeID, sourcePort string) ([]string, error) {
	p, err := g.get(parent)
	if err != nil {
		return nil, err
	}
	dsts := p.externalOut[connEndpoint{node: src, port: sourcePort}]
	out := make([]string, len(dsts))
	for i, d := range dsts {
		out[i] = d.port
	}
	return out, nil
}

// ExternalInTargets returns the (child, inputPort) destinations wired
// from parent's own input port sourcePort (the externalIn table).
func (g *Graph) ExternalInTargets(parent NodeID, sourcePort string) ([]struct {
	Node NodeID
	Port string
}, error) {
	p, err := g.get(parent)
	if err != nil {
		return nil, err
	}
	dsts := p.externalIn[connEndpoint{port: sourcePort}]
	out := make([]struct {
		Node NodeID
		Port string
	}, len(dsts))
	for i, d := range dsts {
		out[i] = struct {
			Node NodeID
			Port string
		}{d.node, d.port}
	}
	return out, nil
}

// Parent returns id's parent NodeID, or noParent for the root.
func (g *Graph) Parent(id NodeID) (NodeID, error) {
	n, err := g.get(id)
	if err != nil {
		return 0, err
	}
	return n.parent, nil
}

// Name returns id's local (non-path) name.
func (g *Graph) Name(id NodeID) (string, error) {
	n, err := g.get(id)
	if err != nil {
		return "", err
	}
	return n.name, nil
}
