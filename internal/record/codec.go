package record

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// PayloadMagic opens every encoded record.
const PayloadMagic byte = 0xD7

const (
	flagRaw  byte = 0
	flagZstd byte = 1
)

// Codec turns documents into self-delimiting payloads:
//
//	magic(1) | flags(1) | uvarint body length | body
//
// Bytes after the body are ignored, so a payload can be read back from a
// page chain whose final page is only partly used.
type Codec struct {
	// CompressOver enables zstd for bodies longer than this many bytes.
	// Zero disables compression.
	CompressOver int
}

// Shared zstd state, built on first use. Construction errors are kept and
// returned by every Marshal or Unmarshal that needs the codec.
var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	})
)

// Marshal encodes d.
func (c Codec) Marshal(d *Document) ([]byte, error) {
	w := NewWriter()
	w.WriteDoc(d)
	body := w.Bytes()
	flags := flagRaw
	if c.CompressOver > 0 && len(body) > c.CompressOver {
		enc, err := encoder()
		if err != nil {
			return nil, fmt.Errorf("record: zstd encoder: %w", err)
		}
		body = enc.EncodeAll(body, make([]byte, 0, len(body)/2))
		flags = flagZstd
	}
	out := make([]byte, 0, len(body)+12)
	out = append(out, PayloadMagic, flags)
	out = binary.AppendUvarint(out, uint64(len(body)))
	return append(out, body...), nil
}

// Unmarshal decodes a payload produced by Marshal. Failures are reported
// as *DecodeError. Offsets inside a compressed body point at the body start.
func (c Codec) Unmarshal(data []byte) (*Document, error) {
	r := NewReader(data, 0)
	magic, err := r.ReadC()
	if err != nil {
		return nil, err
	}
	if magic != PayloadMagic {
		return nil, &DecodeError{Offset: 0, Err: ErrBadMagic}
	}
	flags, err := r.ReadC()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadU()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, r.fail(ErrTruncated)
	}
	start := r.Offset()
	body := data[start : start+int(n)]
	switch flags {
	case flagRaw:
		return NewReader(body, start).ReadDoc()
	case flagZstd:
		dec, err := decoder()
		if err != nil {
			return nil, &DecodeError{Offset: start, Err: fmt.Errorf("zstd decoder: %w", err)}
		}
		raw, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, &DecodeError{Offset: start, Err: fmt.Errorf("zstd: %w", err)}
		}
		d, err := NewReader(raw, 0).ReadDoc()
		if err != nil {
			return nil, &DecodeError{Offset: start, Err: err}
		}
		return d, nil
	default:
		return nil, &DecodeError{Offset: 1, Err: fmt.Errorf("record: unknown flags %#x", flags)}
	}
}
