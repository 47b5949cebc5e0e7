package gossip

import (
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/peer"
)

// errTimeout is returned by the synchronous Query* helpers when a peer
// does not respond within the given deadline.
var errTimeout = errors.New("gossip: request timed out")

// Handler reacts to inbound messages. AcceptTransaction and AcceptBlock
// report whether the message was new to this node (accepted locally);
// the server only relays a message onward when its handler says so,
// which is how loop suppression works: a message this node has already
// seen is never re-broadcast.
type Handler interface {
	NodeID() string
	ChainHeight() uint64
	LatestHash() string
	KnownPeers() []peer.Peer
	AcceptTransaction(payload NewTransactionPayload) (accepted bool)
	AcceptBlock(payload NewBlockPayload) (accepted bool)
	ChainFrom(index uint64) []ResponseChainPayload
	StateSnapshot() StateSyncResponsePayload
}

// Server accepts inbound peer connections, frames and dispatches
// messages, and exposes Broadcast for pushing accepted transactions and
// blocks out to every other known peer.
type Server struct {
	log     *zap.SugaredLogger
	handler Handler
	peers   *peer.Set

	mu       sync.Mutex
	conns    map[string]*Conn
	listener net.Listener

	pendingMu    sync.Mutex
	pendingSync  map[string]chan SyncResponsePayload
	pendingChain map[string]chan ResponseChainPayload
}

// New constructs a gossip server. The caller still needs to call Serve to
// begin accepting connections.
func New(log *zap.SugaredLogger, handler Handler, peers *peer.Set) *Server {
	return &Server{
		log:          log,
		handler:      handler,
		peers:        peers,
		conns:        make(map[string]*Conn),
		pendingSync:  make(map[string]chan SyncResponsePayload),
		pendingChain: make(map[string]chan ResponseChainPayload),
	}
}

// Serve listens on addr and accepts inbound peer connections until the
// listener is closed.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		go s.handleConn(NewConn(conn))
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Dial connects to a peer's gossip address and performs the initial
// handshake, registering the connection for future broadcasts.
func (s *Server) Dial(addr string) (peer.Peer, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return peer.Peer{}, err
	}

	c := NewConn(conn)

	msg, err := NewMessage(TypeHandshake, s.handler.NodeID(), HandshakePayload{
		NodeID:      s.handler.NodeID(),
		ListenAddr:  addr,
		ChainHeight: s.handler.ChainHeight(),
	})
	if err != nil {
		c.Close()
		return peer.Peer{}, err
	}

	if err := c.Send(msg); err != nil {
		c.Close()
		return peer.Peer{}, err
	}

	reply, err := c.Receive()
	if err != nil {
		c.Close()
		return peer.Peer{}, err
	}

	var hs HandshakePayload
	if err := reply.Decode(&hs); err != nil {
		c.Close()
		return peer.Peer{}, err
	}

	p := peer.New(hs.NodeID, addr)
	s.peers.Add(p)

	s.mu.Lock()
	s.conns[p.NodeID] = c
	s.mu.Unlock()

	go s.readLoop(p.NodeID, c)

	return p, nil
}

func (s *Server) handleConn(c *Conn) {
	msg, err := c.Receive()
	if err != nil {
		c.Close()
		return
	}

	if msg.Type != TypeHandshake {
		c.Close()
		return
	}

	var hs HandshakePayload
	if err := msg.Decode(&hs); err != nil {
		c.Close()
		return
	}

	p := peer.New(hs.NodeID, hs.ListenAddr)
	s.peers.Add(p)

	s.mu.Lock()
	s.conns[p.NodeID] = c
	s.mu.Unlock()

	reply, err := NewMessage(TypeHandshake, s.handler.NodeID(), HandshakePayload{
		NodeID:      s.handler.NodeID(),
		ChainHeight: s.handler.ChainHeight(),
	})
	if err != nil {
		return
	}

	if err := c.Send(reply); err != nil {
		return
	}

	s.readLoop(p.NodeID, c)
}

func (s *Server) readLoop(nodeID string, c *Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, nodeID)
		s.mu.Unlock()
		c.Close()
	}()

	for {
		msg, err := c.Receive()
		if err != nil {
			return
		}

		s.dispatch(nodeID, msg)
	}
}

func (s *Server) dispatch(senderID string, msg Message) {
	switch msg.Type {
	case TypeNewTransaction:
		var p NewTransactionPayload
		if err := msg.Decode(&p); err != nil {
			s.log.Errorw("gossip: decode new transaction", "err", err)
			return
		}
		if s.handler.AcceptTransaction(p) {
			s.relay(msg, senderID)
		}

	case TypeNewBlock:
		var p NewBlockPayload
		if err := msg.Decode(&p); err != nil {
			s.log.Errorw("gossip: decode new block", "err", err)
			return
		}
		if s.handler.AcceptBlock(p) {
			s.relay(msg, senderID)
		}

	case TypeSyncRequest:
		reply, err := NewMessage(TypeSyncResponse, s.handler.NodeID(), SyncResponsePayload{
			ChainHeight: s.handler.ChainHeight(),
			LatestHash:  s.handler.LatestHash(),
		})
		if err == nil {
			s.sendTo(senderID, reply)
		}

	case TypeSyncResponse:
		var p SyncResponsePayload
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.fulfillSync(senderID, p)

	case TypeRequestChain:
		var p RequestChainPayload
		if err := msg.Decode(&p); err != nil {
			return
		}
		chunks := s.handler.ChainFrom(p.FromIndex)
		for _, chunk := range chunks {
			reply, err := NewMessage(TypeResponseChain, s.handler.NodeID(), chunk)
			if err == nil {
				s.sendTo(senderID, reply)
			}
		}

	case TypeResponseChain:
		var p ResponseChainPayload
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.fulfillChain(senderID, p)

	case TypePeerList:
		// Informational only in this implementation; peers are learned
		// via handshake on dial.

	case TypeStateSyncRequest:
		reply, err := NewMessage(TypeStateSyncResponse, s.handler.NodeID(), s.handler.StateSnapshot())
		if err == nil {
			s.sendTo(senderID, reply)
		}
	}
}

func (s *Server) fulfillSync(nodeID string, p SyncResponsePayload) {
	s.pendingMu.Lock()
	ch, ok := s.pendingSync[nodeID]
	s.pendingMu.Unlock()

	if ok {
		select {
		case ch <- p:
		default:
		}
	}
}

func (s *Server) fulfillChain(nodeID string, p ResponseChainPayload) {
	s.pendingMu.Lock()
	ch, ok := s.pendingChain[nodeID]
	s.pendingMu.Unlock()

	if ok {
		select {
		case ch <- p:
		default:
		}
	}
}

func (s *Server) sendTo(nodeID string, msg Message) {
	s.mu.Lock()
	c, ok := s.conns[nodeID]
	s.mu.Unlock()

	if !ok {
		return
	}

	if err := c.Send(msg); err != nil {
		s.log.Errorw("gossip: send", "peer", nodeID, "err", err)
	}
}

// relay forwards msg to every connected peer except exclude, the
// configured sender exclusion spec.md's broadcast rule requires.
func (s *Server) relay(msg Message, exclude string) {
	s.mu.Lock()
	conns := make(map[string]*Conn, len(s.conns))
	for id, c := range s.conns {
		if id != exclude {
			conns[id] = c
		}
	}
	s.mu.Unlock()

	for id, c := range conns {
		if err := c.Send(msg); err != nil {
			s.log.Errorw("gossip: relay", "peer", id, "err", err)
		}
	}
}

// BroadcastTransaction announces a newly mempool-accepted transaction to
// every connected peer.
func (s *Server) BroadcastTransaction(payload NewTransactionPayload) {
	msg, err := NewMessage(TypeNewTransaction, s.handler.NodeID(), payload)
	if err != nil {
		return
	}
	s.relay(msg, s.handler.NodeID())
}

// BroadcastBlock announces a newly mined or accepted block to every
// connected peer.
func (s *Server) BroadcastBlock(payload NewBlockPayload) {
	msg, err := NewMessage(TypeNewBlock, s.handler.NodeID(), payload)
	if err != nil {
		return
	}
	s.relay(msg, s.handler.NodeID())
}

// QuerySyncStatus asks a single connected peer for its chain height and
// blocks, up to timeout, for the reply.
func (s *Server) QuerySyncStatus(nodeID string, timeout time.Duration) (SyncResponsePayload, error) {
	ch := make(chan SyncResponsePayload, 1)

	s.pendingMu.Lock()
	s.pendingSync[nodeID] = ch
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pendingSync, nodeID)
		s.pendingMu.Unlock()
	}()

	msg, err := NewMessage(TypeSyncRequest, s.handler.NodeID(), SyncRequestPayload{})
	if err != nil {
		return SyncResponsePayload{}, err
	}

	s.sendTo(nodeID, msg)

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(timeout):
		return SyncResponsePayload{}, errTimeout
	}
}

// QueryChainSuffix asks a single connected peer for every block from
// fromIndex onward and blocks, up to timeout, for the reply.
func (s *Server) QueryChainSuffix(nodeID string, fromIndex uint64, timeout time.Duration) ([]database.Block, error) {
	ch := make(chan ResponseChainPayload, 1)

	s.pendingMu.Lock()
	s.pendingChain[nodeID] = ch
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pendingChain, nodeID)
		s.pendingMu.Unlock()
	}()

	msg, err := NewMessage(TypeRequestChain, s.handler.NodeID(), RequestChainPayload{FromIndex: fromIndex})
	if err != nil {
		return nil, err
	}

	s.sendTo(nodeID, msg)

	select {
	case p := <-ch:
		return p.Blocks, nil
	case <-time.After(timeout):
		return nil, errTimeout
	}
}

// RequestSyncStatus polls every connected peer's chain height.
func (s *Server) RequestSyncStatus() {
	msg, err := NewMessage(TypeSyncRequest, s.handler.NodeID(), SyncRequestPayload{})
	if err != nil {
		return
	}

	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Send(msg)
	}
}
