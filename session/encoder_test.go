package session

import (
	"strings"
	"testing"
	"time"
)

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	if err == nil || !strings.Contains(err.Error(), "unsupported session schema version") {
		t.Fatalf("expected unsupported schema version error, got %v", err)
	}
}

func TestEncodeClampsRiskScore(t *testing.T) {
	sess := testSession("sid", "u")
	sess.RiskScore = 900
	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RiskScore != 255 {
		t.Fatalf("expected clamped score 255, got %d", got.RiskScore)
	}
}

func TestEncodeRejectsOversizedField(t *testing.T) {
	sess := testSession("sid", "u")
	sess.DeviceSignature = strings.Repeat("x", 70000)
	if _, err := Encode(sess); err == nil {
		t.Fatalf("expected oversized field to fail")
	}
}

// FuzzSessionDecode exercises the binary session decoder with arbitrary inputs.
func FuzzSessionDecode(f *testing.F) {
	sess := &Session{
		UserID:                 "user1",
		NetworkAddress:         "10.0.0.1",
		DeviceSignature:        "curl/8.0",
		InitialNetworkAddress:  "10.0.0.1",
		InitialDeviceSignature: "curl/8.0",
		CreatedAt:              time.Unix(1700000000, 0),
		LastActivity:           time.Unix(1700003600, 0),
	}
	encoded, err := Encode(sess)
	if err == nil {
		f.Add(encoded)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{1, 255, 255})

	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		_, _ = Encode(s)
	})
}
