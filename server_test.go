package gotftp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerValidateRejectsUnsupportedMode(t *testing.T) {
	srv := &Server{ep: mustEndpoint(t), cfg: DefaultConfig()}
	defer srv.ep.Close()
	data := EncodeRequest(OpRRQ, "file.txt", "netascii")
	_, err := srv.validate(data, loopbackAddr(t))
	require.Error(t, err)
}

func TestServerValidateRejectsTraversal(t *testing.T) {
	srv := &Server{ep: mustEndpoint(t), cfg: DefaultConfig()}
	defer srv.ep.Close()
	data := EncodeRequest(OpWRQ, "../../etc/passwd", octetMode)
	_, err := srv.validate(data, loopbackAddr(t))
	require.Error(t, err)
}

func TestServerValidateAcceptsWellFormedRequest(t *testing.T) {
	srv := &Server{ep: mustEndpoint(t), cfg: DefaultConfig()}
	defer srv.ep.Close()
	data := EncodeRequest(OpRRQ, "file.txt", octetMode)
	req, err := srv.validate(data, loopbackAddr(t))
	require.NoError(t, err)
	require.Equal(t, "file.txt", req.Filename)
}

func TestOpcodeName(t *testing.T) {
	require.Equal(t, "RRQ", opcodeName(OpRRQ))
	require.Equal(t, "WRQ", opcodeName(OpWRQ))
	require.Equal(t, "DRQ", opcodeName(OpDRQ))
	require.Equal(t, "UNKNOWN", opcodeName(OpData))
}

func mustEndpoint(t *testing.T) *endpoint {
	t.Helper()
	ep, err := bindEndpoint("127.0.0.1:0")
	require.NoError(t, err)
	return ep
}

func loopbackAddr(t *testing.T) net.Addr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp4", "127.0.0.1:12345")
	require.NoError(t, err)
	return addr
}
