package fcgiproto

// Record is one complete framed unit: header, payload and padding.
// The underlying buffer must not be modified once the record is built.
type Record struct {
	header Header
	data   []byte
}

// NewRecord builds a record around content. ContentLength is taken from
// content; PaddingLength from h, with zeroed padding bytes.
func NewRecord(h Header, content []byte) (Record, error) {
	if len(content) > MaxContentLength {
		return Record{}, ErrContentTooLarge
	}
	h.ContentLength = uint16(len(content))
	data := make([]byte, h.RecordLen())
	copy(data, EncodeHeader(h))
	copy(data[HeaderLen:], content)
	return Record{header: h, data: data}, nil
}

// NewAlignedRecord is NewRecord with the padding chosen so the record ends on
// an 8-byte boundary.
func NewAlignedRecord(h Header, content []byte) (Record, error) {
	h.PaddingLength = uint8(-len(content) & 7)
	return NewRecord(h, content)
}

// ParseRecord wraps b, which must hold exactly one record. b is not copied.
func ParseRecord(b []byte) (Record, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Record{}, err
	}
	if h.RecordLen() != len(b) {
		return Record{}, ErrRecordLenMismatch
	}
	return Record{header: h, data: b}, nil
}

func (r Record) Header() Header {
	return r.header
}

// Content returns the payload bytes.
func (r Record) Content() []byte {
	return r.data[HeaderLen : HeaderLen+int(r.header.ContentLength)]
}

func (r Record) Padding() []byte {
	return r.data[HeaderLen+int(r.header.ContentLength):]
}

// Bytes returns the full wire form of the record.
func (r Record) Bytes() []byte {
	return r.data
}

func (r Record) Len() int {
	return len(r.data)
}

func (r Record) IsZero() bool {
	return r.data == nil
}
