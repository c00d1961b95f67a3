package gotftp

import (
	"errors"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// MaxRetries is the number of consecutive bad replies (a timeout in the send
// loop, a wrong block, a garbage packet) the engine tolerates before
// declaring a transfer failed. Reaching MaxRetries is terminal; §3 invariant
// 3. In the receive loop a timeout ends the transfer at once.
const MaxRetries = 3

var (
	// ErrRetriesExhausted is returned when MaxRetries consecutive bad
	// replies were observed for the same block.
	ErrRetriesExhausted = errors.New("gotftp: retry count exhausted")
)

// engine drives one transfer end-to-end over an endpoint already bound to
// a fixed peer address. It never renegotiates peer or TID (§9): once addr
// is set it is used for every datagram of the transfer.
type engine struct {
	ep         *endpoint
	peer       net.Addr
	timeout    time.Duration
	metrics    *Metrics
	log        *log.Entry
	strictTID  bool
	maxRetries int
}

func newEngine(ep *endpoint, peer net.Addr, timeout time.Duration, metrics *Metrics, entry *log.Entry) *engine {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &engine{ep: ep, peer: peer, timeout: timeout, metrics: metrics, log: entry, maxRetries: MaxRetries}
}

// withMaxRetries overrides the retry budget, e.g. from Config.MaxRetries.
func (e *engine) withMaxRetries(n int) *engine {
	if n > 0 {
		e.maxRetries = n
	}
	return e
}

// withStrictTID enables the RFC 1350 §4 hardening option §9 describes: once
// peer is known, a datagram from any other source address is answered with
// ERROR_UNKNOWN_TID and otherwise ignored rather than accepted.
func (e *engine) withStrictTID(strict bool) *engine {
	e.strictTID = strict
	return e
}

// sendLoop implements §4.C's send loop: it is used by the client's WRQ
// handler and the server's RRQ handler. The precondition (initial
// handshake already acknowledged) is the caller's responsibility.
func (e *engine) sendLoop(source io.Reader, startBlock uint16) (int64, error) {
	var total int64
	block := startBlock
	readBuf := make([]byte, MaxBlockBytes)

	for {
		n, rerr := source.Read(readBuf)
		if rerr != nil && rerr != io.EOF {
			return total, rerr
		}
		datagram := EncodeData(block, readBuf[:n])

		retry := 0
	ackWait:
		for {
			if _, err := e.ep.send(datagram, e.peer); err != nil {
				return total, err
			}
			e.log.WithField("block", block).WithField("bytes", n).Debug("sent data block")

			resp, err := e.recvAccepted()
			if err != nil {
				if isTimeout(err) {
					retry++
					if retry >= e.maxRetries {
						return total, err
					}
					e.metrics.Retransmit()
					continue ackWait
				}
				return total, err
			}

			switch p := resp.(type) {
			case *ErrorPacket:
				e.log.WithField("code", p.Code).Warn(p.Message)
				return total, newTransferError(p.Code, p.Message)
			case *AckPacket:
				if p.Block == block {
					break ackWait
				}
				retry++
				if retry >= e.maxRetries {
					return total, ErrRetriesExhausted
				}
				e.metrics.Retransmit()
			default:
				retry++
				if retry >= e.maxRetries {
					return total, ErrRetriesExhausted
				}
				e.metrics.Retransmit()
			}
		}

		total += int64(n)
		e.metrics.BytesSent(n)
		if n < MaxBlockBytes {
			return total, nil
		}
		block++
	}
}

// receiveLoop implements §4.C's receive loop: used by the client's RRQ
// handler and the server's WRQ handler.
func (e *engine) receiveLoop(sink io.Writer, startBlock uint16) (int64, error) {
	var total int64
	expected := startBlock
	var lastAcked uint16
	if startBlock > 0 {
		lastAcked = startBlock - 1
	}
	retry := 0

	for {
		resp, err := e.recvAccepted()
		if err != nil {
			return total, err
		}

		switch p := resp.(type) {
		case *ErrorPacket:
			e.log.WithField("code", p.Code).Warn(p.Message)
			return total, newTransferError(p.Code, p.Message)
		case *DataPacket:
			switch {
			case p.Block == expected:
				if _, werr := sink.Write(p.Data); werr != nil {
					fe := classifyFSError(werr)
					e.sendError(fe.Code, werr.Error())
					return total, fe
				}
				if err := e.ack(expected); err != nil {
					return total, err
				}
				total += int64(len(p.Data))
				e.metrics.BytesReceived(len(p.Data))
				retry = 0
				lastAcked = expected
				if len(p.Data) < MaxBlockBytes {
					return total, nil
				}
				expected++
			case p.Block == lastAcked:
				// sender retransmitted because our ACK was lost.
				if err := e.ack(lastAcked); err != nil {
					return total, err
				}
				retry++
				e.metrics.Retransmit()
				if retry >= e.maxRetries {
					return total, ErrRetriesExhausted
				}
			default:
				if err := e.ack(lastAcked); err != nil {
					return total, err
				}
				retry++
				if retry >= e.maxRetries {
					return total, ErrRetriesExhausted
				}
			}
		default:
			if err := e.ack(lastAcked); err != nil {
				return total, err
			}
			retry++
			if retry >= e.maxRetries {
				return total, ErrRetriesExhausted
			}
		}
	}
}

func (e *engine) ack(block uint16) error {
	_, err := e.ep.send(EncodeAck(block), e.peer)
	return err
}

func (e *engine) sendError(code ErrorCode, detail string) {
	e.ep.send(EncodeError(code, detail), e.peer)
}

// recv reads one datagram from the endpoint and decodes it. Decode errors
// are reported as a nil Packet with a nil error so the caller treats a
// malformed datagram the same as "any other packet" (§4.A).
func (e *engine) recv() (Packet, net.Addr, error) {
	buf := make([]byte, MaxBlockBytes+4)
	n, peer, err := e.ep.recv(buf, e.timeout)
	if err != nil {
		return nil, nil, err
	}
	p, derr := Decode(buf[:n])
	if derr != nil {
		return nil, peer, nil
	}
	return p, peer, nil
}

// recvAccepted is recv filtered through the TID policy: in the default,
// non-strict mode the source address is never checked (§9 - "datagrams
// with a different peer address are accepted anyway"), so every decoded
// packet is returned as-is. With -strict-tid, a datagram from any address
// other than e.peer is answered with ERROR_UNKNOWN_TID and otherwise
// ignored; the caller keeps waiting, and the next read starts a fresh
// configured timeout.
func (e *engine) recvAccepted() (Packet, error) {
	for {
		p, from, err := e.recv()
		if err != nil {
			return nil, err
		}
		if e.strictTID && from != nil && e.peer != nil && from.String() != e.peer.String() {
			e.ep.send(EncodeError(ErrUnknownTID, ""), from)
			continue
		}
		return p, nil
	}
}
