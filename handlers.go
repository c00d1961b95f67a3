package gotftp

import (
	"io"
	"net"

	log "github.com/sirupsen/logrus"
)

// FileHandler is the external collaborator that turns a filename plus the
// requesting peer's address into a concrete byte source/sink (§6, "the
// core consumes an abstract byte sink/source"). The server never touches
// the filesystem directly.
type FileHandler interface {
	// ReadFile - process RRQ; returns the source to stream to the peer.
	ReadFile(remoteAddr, fileName string) (io.ReadCloser, error)
	// WriteFile - process WRQ; returns the sink to stream into.
	WriteFile(remoteAddr, fileName string) (io.WriteCloser, error)
	// IsFileExist - used to enforce the "WRQ must not overwrite" rule.
	IsFileExist(remoteAddr, fileName string) (exist bool, err error)
	// DeleteFile - process DRQ, and clean up a failed WRQ's partial file.
	DeleteFile(remoteAddr, fileName string) error
}

// handleRRQ opens the requested file for reading and drives the send loop
// over the server's well-known endpoint (no TID renegotiation, §9).
func (s *Server) handleRRQ(req *RequestPacket, peer net.Addr, entry *log.Entry) error {
	rc, err := s.handler.ReadFile(peer.String(), req.Filename)
	if err != nil {
		fe := classifyFSError(err)
		detail := fe.Detail
		if fe.Code == ErrFileNotFound {
			detail = ""
		}
		s.sendError(peer, fe.Code, detail)
		return fe
	}
	defer rc.Close()

	eng := newEngine(s.ep, peer, s.cfg.ReadTimeout, s.metrics, entry).withStrictTID(s.cfg.StrictTID).withMaxRetries(s.cfg.MaxRetries)
	_, err = eng.sendLoop(rc, 1)
	return err
}

// handleWRQ checks that the target does not already exist, opens it for
// writing, acknowledges block 0, and drives the receive loop. On failure
// the partial file is unlinked (§4.C, §7.4).
func (s *Server) handleWRQ(req *RequestPacket, peer net.Addr, entry *log.Entry) error {
	exists, err := s.handler.IsFileExist(peer.String(), req.Filename)
	if err != nil {
		fe := classifyFSError(err)
		s.sendError(peer, fe.Code, fe.Detail)
		return fe
	}
	if exists {
		s.sendError(peer, ErrFileExists, "")
		return newTransferError(ErrFileExists, "")
	}

	wc, err := s.handler.WriteFile(peer.String(), req.Filename)
	if err != nil {
		fe := classifyFSError(err)
		s.sendError(peer, fe.Code, fe.Detail)
		return fe
	}

	eng := newEngine(s.ep, peer, s.cfg.ReadTimeout, s.metrics, entry).withStrictTID(s.cfg.StrictTID).withMaxRetries(s.cfg.MaxRetries)
	if err := eng.ack(0); err != nil {
		wc.Close()
		s.handler.DeleteFile(peer.String(), req.Filename)
		return err
	}

	_, recvErr := eng.receiveLoop(wc, 1)
	if cerr := wc.Close(); cerr != nil && recvErr == nil {
		recvErr = cerr
	}
	if recvErr != nil {
		s.handler.DeleteFile(peer.String(), req.Filename)
	}
	return recvErr
}

// handleDRQ removes the file and acknowledges block 0 on success, or
// reports an error packet with the mapped code on failure.
func (s *Server) handleDRQ(req *RequestPacket, peer net.Addr, entry *log.Entry) error {
	if err := s.handler.DeleteFile(peer.String(), req.Filename); err != nil {
		fe := classifyFSError(err)
		s.sendError(peer, fe.Code, fe.Detail)
		return fe
	}
	eng := newEngine(s.ep, peer, s.cfg.ReadTimeout, s.metrics, entry)
	return eng.ack(0)
}
