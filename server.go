package gotftp

import (
	"net"
)

// Server is the TFTP dispatcher (§4.E). It is intentionally
// single-threaded: one transfer occupies the server end-to-end before the
// dispatch loop reads the next request datagram (Non-goals, §5).
type Server struct {
	ep      *endpoint
	handler FileHandler
	cfg     Config
	metrics *Metrics
}

// NewServer binds cfg.ListenAddr and returns a Server ready to Run.
func NewServer(cfg Config, handler FileHandler, metrics *Metrics) (*Server, error) {
	ep, err := bindEndpoint(cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	return &Server{ep: ep, handler: handler, cfg: cfg, metrics: metrics}, nil
}

// Close releases the listening socket.
func (s *Server) Close() error {
	return s.ep.Close()
}

// Run blocks forever, serving one request at a time. Receive errors and
// zero-byte datagrams are skipped, so Run does not return.
func (s *Server) Run() error {
	buf := make([]byte, MaxBlockBytes+4)
	for {
		s.ep.setRecvTimeout(0)
		n, peer, err := s.ep.recv(buf, 0)
		if err != nil || n == 0 {
			// §4.E step 2: ignore on zero-byte or error results and keep
			// serving; a malformed datagram from one client must not take
			// the whole dispatcher down.
			continue
		}
		s.dispatch(append([]byte(nil), buf[:n]...), peer)
	}
}

// dispatch validates one request datagram and, if it passes, invokes the
// matching handler with the server's read timeout in effect for the
// duration of the transfer.
func (s *Server) dispatch(data []byte, peer net.Addr) {
	req, verr := s.validate(data, peer)
	if verr != nil {
		return
	}

	opName := opcodeName(req.Op)
	transferID := newTransferID()
	entry := entryFor(transferID, opName, peer.String())
	entry.Info("request accepted")
	s.metrics.TransferStarted(opName)

	s.ep.setRecvTimeout(s.cfg.ReadTimeout)
	var err error
	switch req.Op {
	case OpRRQ:
		err = s.handleRRQ(req, peer, entry)
	case OpWRQ:
		err = s.handleWRQ(req, peer, entry)
	case OpDRQ:
		err = s.handleDRQ(req, peer, entry)
	}
	s.ep.setRecvTimeout(0)

	if err != nil {
		entry.WithError(err).Warn("transfer failed")
		s.metrics.TransferFailed(opName, reasonFor(err))
		return
	}
	entry.Info("transfer completed")
	s.metrics.TransferCompleted(opName)
}

// validate implements §4.E steps 3-4: opcode and mode checks, filename
// policy, and (inside the per-opcode handler) the existence precondition.
func (s *Server) validate(data []byte, peer net.Addr) (*RequestPacket, error) {
	if len(data) < 4 {
		s.sendError(peer, ErrUndefined, "invalid request")
		return nil, errMalformedPacket
	}

	pkt, derr := Decode(data)
	if derr != nil {
		s.sendError(peer, ErrUndefined, "invalid request")
		return nil, derr
	}

	req, ok := pkt.(*RequestPacket)
	if !ok || (req.Op != OpRRQ && req.Op != OpWRQ && req.Op != OpDRQ) {
		s.sendError(peer, ErrIllegalOp, "")
		return nil, errMalformedPacket
	}

	if !isOctetMode(req.Mode) {
		s.sendError(peer, ErrUndefined, "Unsupported mode: Only 'octet' is allowed")
		return nil, errUnsupportedMode
	}

	if err := validateFilename(req.Filename); err != nil {
		if te, ok := err.(*TransferError); ok {
			s.sendError(peer, te.Code, te.Detail)
		}
		return nil, err
	}

	return req, nil
}

func (s *Server) sendError(peer net.Addr, code ErrorCode, detail string) {
	s.ep.send(EncodeError(code, detail), peer)
}

func opcodeName(op uint16) string {
	switch op {
	case OpRRQ:
		return "RRQ"
	case OpWRQ:
		return "WRQ"
	case OpDRQ:
		return "DRQ"
	default:
		return "UNKNOWN"
	}
}

func reasonFor(err error) string {
	if te, ok := err.(*TransferError); ok {
		return te.Code.String()
	}
	if isTimeout(err) {
		return "timeout"
	}
	if err == ErrRetriesExhausted {
		return "retries_exhausted"
	}
	return "io_error"
}
