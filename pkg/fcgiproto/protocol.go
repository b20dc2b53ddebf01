// Package fcgiproto holds the fixed 8-byte record header and the immutable
// Record built on top of it. Type and version tags are carried as opaque
// values; nothing here interprets record contents.
package fcgiproto

import (
	"errors"
	"fmt"

	wkproto "github.com/WuKongIM/WuKongIMGoProto"
)

const (
	// HeaderLen is the fixed size of a record header on the wire.
	HeaderLen = 8

	// MaxContentLength is the largest payload a single record can declare.
	MaxContentLength = 0xFFFF

	// MaxPaddingLength is the largest padding a single record can declare.
	MaxPaddingLength = 0xFF

	Version1 uint8 = 1
)

var (
	ErrShortHeader       = errors.New("fcgiproto: short header")
	ErrContentTooLarge   = errors.New("fcgiproto: content larger than 65535 bytes")
	ErrRecordLenMismatch = errors.New("fcgiproto: record length does not match header")
)

type RecordType uint8

const (
	BeginRequest    RecordType = 1
	AbortRequest    RecordType = 2
	EndRequest      RecordType = 3
	Params          RecordType = 4
	Stdin           RecordType = 5
	Stdout          RecordType = 6
	Stderr          RecordType = 7
	Data            RecordType = 8
	GetValues       RecordType = 9
	GetValuesResult RecordType = 10
	UnknownType     RecordType = 11
)

func (r RecordType) Uint8() uint8 {
	return uint8(r)
}

func (r RecordType) String() string {
	switch r {
	case BeginRequest:
		return "BeginRequest"
	case AbortRequest:
		return "AbortRequest"
	case EndRequest:
		return "EndRequest"
	case Params:
		return "Params"
	case Stdin:
		return "Stdin"
	case Stdout:
		return "Stdout"
	case Stderr:
		return "Stderr"
	case Data:
		return "Data"
	case GetValues:
		return "GetValues"
	case GetValuesResult:
		return "GetValuesResult"
	case UnknownType:
		return "UnknownType"
	default:
		return fmt.Sprintf("Unknown RecordType %d", uint8(r))
	}
}

// Header is the fixed record header. Multi-byte fields are big-endian on the wire.
type Header struct {
	Version       uint8
	Type          RecordType
	RequestID     uint16
	ContentLength uint16
	PaddingLength uint8
	Reserved      uint8
}

// RecordLen returns the on-wire length of the record this header announces.
func (h Header) RecordLen() int {
	return HeaderLen + int(h.ContentLength) + int(h.PaddingLength)
}

func (h Header) String() string {
	return fmt.Sprintf("Version:%d Type:%s RequestID:%d ContentLength:%d PaddingLength:%d", h.Version, h.Type, h.RequestID, h.ContentLength, h.PaddingLength)
}

// DecodeHeader decodes the header from the first HeaderLen bytes of b.
// Bytes beyond the header are ignored.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	dec := wkproto.NewDecoder(b[:HeaderLen])
	var (
		h   Header
		err error
		typ uint8
	)
	if h.Version, err = dec.Uint8(); err != nil {
		return Header{}, err
	}
	if typ, err = dec.Uint8(); err != nil {
		return Header{}, err
	}
	h.Type = RecordType(typ)
	if h.RequestID, err = dec.Uint16(); err != nil {
		return Header{}, err
	}
	if h.ContentLength, err = dec.Uint16(); err != nil {
		return Header{}, err
	}
	if h.PaddingLength, err = dec.Uint8(); err != nil {
		return Header{}, err
	}
	if h.Reserved, err = dec.Uint8(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// EncodeHeader returns the 8 wire bytes of h.
func EncodeHeader(h Header) []byte {
	enc := wkproto.NewEncoder()
	defer enc.End()
	enc.WriteUint8(h.Version)
	enc.WriteUint8(h.Type.Uint8())
	enc.WriteUint16(h.RequestID)
	enc.WriteUint16(h.ContentLength)
	enc.WriteUint8(h.PaddingLength)
	enc.WriteUint8(h.Reserved)
	return enc.Bytes()
}
