package gotftp

import "testing"

func TestEncodeDecodeRequest(t *testing.T) {
	for _, op := range []uint16{OpRRQ, OpWRQ, OpDRQ} {
		data := EncodeRequest(op, "report.txt", octetMode)
		pkt, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		req, ok := pkt.(*RequestPacket)
		if !ok {
			t.Fatalf("got %T, want *RequestPacket", pkt)
		}
		if req.Op != op || req.Filename != "report.txt" || req.Mode != octetMode {
			t.Fatalf("got %+v", req)
		}
	}
}

func TestEncodeDecodeData(t *testing.T) {
	payload := []byte("hello world")
	data := EncodeData(7, payload)
	pkt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	dp, ok := pkt.(*DataPacket)
	if !ok {
		t.Fatalf("got %T, want *DataPacket", pkt)
	}
	if dp.Block != 7 || string(dp.Data) != string(payload) {
		t.Fatalf("got %+v", dp)
	}
}

func TestEncodeDecodeDataEmptyPayload(t *testing.T) {
	data := EncodeData(1, nil)
	pkt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	dp := pkt.(*DataPacket)
	if len(dp.Data) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(dp.Data))
	}
}

func TestEncodeDecodeAck(t *testing.T) {
	data := EncodeAck(512)
	pkt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ap, ok := pkt.(*AckPacket)
	if !ok || ap.Block != 512 {
		t.Fatalf("got %+v", pkt)
	}
}

func TestEncodeDecodeError(t *testing.T) {
	data := EncodeError(ErrFileNotFound, "missing.txt")
	pkt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ep, ok := pkt.(*ErrorPacket)
	if !ok || ep.Code != ErrFileNotFound {
		t.Fatalf("got %+v", pkt)
	}
	want := "File not found - missing.txt"
	if ep.Message != want {
		t.Fatalf("got message %q, want %q", ep.Message, want)
	}
}

func TestEncodeErrorTruncatesLongDetail(t *testing.T) {
	detail := make([]byte, MaxBlockBytes*2)
	for i := range detail {
		detail[i] = 'x'
	}
	data := EncodeError(ErrUndefined, string(detail))
	if len(data) > MaxBlockBytes+4 {
		t.Fatalf("encoded error packet too large: %d bytes", len(data))
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		{0x00, 0x09}, // unknown opcode
		{0x00, 0x03},
		{0x00, 0x04},
		{0x00, 0x05},
	}
	for _, c := range cases {
		if _, err := Decode(c); err == nil {
			t.Fatalf("expected error decoding %v", c)
		}
	}
}

func TestIsOctetMode(t *testing.T) {
	if !isOctetMode("octet") || !isOctetMode("OCTET") || !isOctetMode("Octet") {
		t.Fatal("octet mode should match case-insensitively")
	}
	if isOctetMode("netascii") || isOctetMode("mail") {
		t.Fatal("only octet mode is supported")
	}
}
