package gotftp

import (
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// Client is the driver behind cmd/client: it resolves the server address,
// binds an ephemeral local socket, and runs one transfer at a time through
// the same engine the server uses.
type Client struct {
	ep         *endpoint
	remote     net.Addr
	timeout    time.Duration
	metrics    *Metrics
	strictTID  bool
	maxRetries int
}

// NewClient resolves addr and binds an ephemeral UDP socket for it.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	remote, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, err
	}
	ep, err := bindEndpoint(":0")
	if err != nil {
		return nil, err
	}
	return &Client{ep: ep, remote: remote, timeout: timeout, metrics: NewMetrics(), maxRetries: MaxRetries}, nil
}

// WithStrictTID toggles the -strict-tid hardening policy (§9 REDESIGN FLAGS).
func (c *Client) WithStrictTID(strict bool) *Client {
	c.strictTID = strict
	return c
}

// WithMaxRetries overrides the per-block retry budget.
func (c *Client) WithMaxRetries(n int) *Client {
	if n > 0 {
		c.maxRetries = n
	}
	return c
}

func (c *Client) Close() error {
	return c.ep.Close()
}

func (c *Client) entry(opName string) *log.Entry {
	return entryFor(newTransferID(), opName, c.remote.String())
}

// Get issues an RRQ for fileName and streams the reply into dst.
func (c *Client) Get(fileName string, dst io.Writer) error {
	entry := c.entry("RRQ")
	entry.Info("request sent")
	if _, err := c.ep.send(EncodeRequest(OpRRQ, fileName, octetMode), c.remote); err != nil {
		return err
	}
	eng := newEngine(c.ep, c.remote, c.timeout, c.metrics, entry).withStrictTID(c.strictTID).withMaxRetries(c.maxRetries)
	_, err := eng.receiveLoop(dst, 1)
	return err
}

// Put issues a WRQ for fileName and streams src as the upload body.
func (c *Client) Put(fileName string, src io.Reader) error {
	entry := c.entry("WRQ")
	entry.Info("request sent")
	if _, err := c.ep.send(EncodeRequest(OpWRQ, fileName, octetMode), c.remote); err != nil {
		return err
	}
	eng := newEngine(c.ep, c.remote, c.timeout, c.metrics, entry).withStrictTID(c.strictTID).withMaxRetries(c.maxRetries)
	ack0, err := eng.recvAccepted()
	if err != nil {
		return err
	}
	if ep, ok := ack0.(*ErrorPacket); ok {
		return newTransferError(ep.Code, ep.Message)
	}
	if ap, ok := ack0.(*AckPacket); !ok || ap.Block != 0 {
		return errMalformedPacket
	}
	_, err = eng.sendLoop(src, 1)
	return err
}

// Delete issues a DRQ for fileName and waits for the ack-or-error reply.
func (c *Client) Delete(fileName string) error {
	entry := c.entry("DRQ")
	entry.Info("request sent")
	if _, err := c.ep.send(EncodeRequest(OpDRQ, fileName, octetMode), c.remote); err != nil {
		return err
	}
	eng := newEngine(c.ep, c.remote, c.timeout, c.metrics, entry).withStrictTID(c.strictTID).withMaxRetries(c.maxRetries)
	resp, err := eng.recvAccepted()
	if err != nil {
		return err
	}
	switch p := resp.(type) {
	case *ErrorPacket:
		return newTransferError(p.Code, p.Message)
	case *AckPacket:
		if p.Block != 0 {
			return errMalformedPacket
		}
		return nil
	default:
		return errMalformedPacket
	}
}
