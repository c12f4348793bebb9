package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// CurrentSchemaVersion is the binary layout written by [Encode].
const CurrentSchemaVersion uint8 = 1

const (
	flagMFAVerified byte = 1 << 0
)

var errFieldTooLong = errors.New("session field too long")

// Encode serializes s into the binary session layout.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentSchemaVersion)

	for _, field := range []string{
		s.UserID,
		s.NetworkAddress,
		s.DeviceSignature,
		s.InitialNetworkAddress,
		s.InitialDeviceSignature,
		s.Location,
	} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastActivity.UnixMilli()); err != nil {
		return nil, err
	}

	var flags byte
	if s.MFAVerified {
		flags |= flagMFAVerified
	}
	buf.WriteByte(flags)

	score := s.RiskScore
	if score < 0 {
		score = 0
	}
	if score > math.MaxUint8 {
		score = math.MaxUint8
	}
	buf.WriteByte(byte(score))

	return buf.Bytes(), nil
}

// Decode parses a binary session blob. The session id is not part of the
// blob; callers set it from the storage key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	s := &Session{SchemaVersion: version}

	for _, dst := range []*string{
		&s.UserID,
		&s.NetworkAddress,
		&s.DeviceSignature,
		&s.InitialNetworkAddress,
		&s.InitialDeviceSignature,
		&s.Location,
	} {
		v, err := readString(reader)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	var createdAt, lastActivity int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &lastActivity); err != nil {
		return nil, err
	}
	s.CreatedAt = time.UnixMilli(createdAt)
	s.LastActivity = time.UnixMilli(lastActivity)

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.MFAVerified = flags&flagMFAVerified != 0

	score, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.RiskScore = int(score)

	return s, nil
}

func writeString(buf *bytes.Buffer, v string) error {
	if len(v) > math.MaxUint16 {
		return errFieldTooLong
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(v))); err != nil {
		return err
	}
	buf.WriteString(v)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
