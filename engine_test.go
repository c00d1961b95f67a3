package gotftp

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// pairedEndpoints binds two loopback UDP sockets so a send/receiveLoop pair
// can be driven against each other without touching a real network.
func pairedEndpoints(t *testing.T) (client, server *endpoint) {
	t.Helper()
	a, err := bindEndpoint("127.0.0.1:0")
	require.NoError(t, err)
	b, err := bindEndpoint("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestEngineRoundTripSmallFile(t *testing.T) {
	clientEp, serverEp := pairedEndpoints(t)
	payload := []byte("the quick brown fox jumps over the lazy dog")

	done := make(chan error, 1)
	go func() {
		eng := newEngine(serverEp, clientEp.LocalAddr(), time.Second, nil, nil)
		_, err := eng.sendLoop(bytes.NewReader(payload), 1)
		done <- err
	}()

	var out bytes.Buffer
	eng := newEngine(clientEp, serverEp.LocalAddr(), time.Second, nil, nil)
	n, err := eng.receiveLoop(&out, 1)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)
	require.Equal(t, payload, out.Bytes())
	require.NoError(t, <-done)
}

func TestEngineRoundTripMultiBlock(t *testing.T) {
	clientEp, serverEp := pairedEndpoints(t)
	payload := bytes.Repeat([]byte{0xAB}, MaxBlockBytes*2+17)

	done := make(chan error, 1)
	go func() {
		eng := newEngine(serverEp, clientEp.LocalAddr(), time.Second, nil, nil)
		_, err := eng.sendLoop(bytes.NewReader(payload), 1)
		done <- err
	}()

	var out bytes.Buffer
	eng := newEngine(clientEp, serverEp.LocalAddr(), time.Second, nil, nil)
	_, err := eng.receiveLoop(&out, 1)
	require.NoError(t, err)
	require.Equal(t, payload, out.Bytes())
	require.NoError(t, <-done)
}

func TestEngineRoundTripEmptyFile(t *testing.T) {
	clientEp, serverEp := pairedEndpoints(t)

	done := make(chan error, 1)
	go func() {
		eng := newEngine(serverEp, clientEp.LocalAddr(), time.Second, nil, nil)
		_, err := eng.sendLoop(bytes.NewReader(nil), 1)
		done <- err
	}()

	var out bytes.Buffer
	eng := newEngine(clientEp, serverEp.LocalAddr(), time.Second, nil, nil)
	n, err := eng.receiveLoop(&out, 1)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, <-done)
}

func TestEngineReceiveLoopSurfacesErrorPacket(t *testing.T) {
	clientEp, serverEp := pairedEndpoints(t)

	go func() {
		eng := newEngine(serverEp, clientEp.LocalAddr(), time.Second, nil, nil)
		eng.sendError(ErrFileNotFound, "nope.txt")
	}()

	var out bytes.Buffer
	eng := newEngine(clientEp, serverEp.LocalAddr(), time.Second, nil, nil)
	_, err := eng.receiveLoop(&out, 1)
	require.Error(t, err)
	te, ok := err.(*TransferError)
	require.True(t, ok)
	require.Equal(t, ErrFileNotFound, te.Code)
}

func TestEngineTimesOutWithoutPeer(t *testing.T) {
	clientEp, serverEp := pairedEndpoints(t)
	eng := newEngine(clientEp, serverEp.LocalAddr(), 50*time.Millisecond, nil, nil).withMaxRetries(1)
	var out bytes.Buffer
	_, err := eng.receiveLoop(&out, 1)
	require.Error(t, err)
}
