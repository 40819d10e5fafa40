package wasm

import (
	"fmt"
	"unicode/utf8"
)

// reader walks a byte slice and records the first decoding error.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("offset %d: %w", r.pos, ErrTruncated)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readU32() (uint32, error) {
	v, n, err := DecodeULEB128(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("offset %d: %w", r.pos, err)
	}
	r.pos += n
	return v, nil
}

func (r *reader) readU64() (uint64, error) {
	v, n, err := DecodeULEB128u64(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("offset %d: %w", r.pos, err)
	}
	r.pos += n
	return v, nil
}

func (r *reader) readS64() (int64, error) {
	v, n, err := DecodeSLEB128(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("offset %d: %w", r.pos, err)
	}
	r.pos += n
	return v, nil
}

func (r *reader) readBytes(n uint32) ([]byte, error) {
	if uint64(n) > uint64(r.remaining()) {
		return nil, fmt.Errorf("offset %d: need %d bytes: %w", r.pos, n, ErrTruncated)
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *reader) readName() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("offset %d: name is not valid UTF-8", r.pos-int(n))
	}
	return string(b), nil
}

// section is a raw section slice located within a module binary.
type section struct {
	body []byte
	// start and end bound the whole section, id byte and size included.
	start, end int
	id         byte
}

// sections splits a module binary into its top-level sections.
func sections(bin []byte) ([]section, error) {
	if err := CheckHeader(bin); err != nil {
		return nil, err
	}
	r := &reader{buf: bin, pos: 8}
	var out []section
	for r.remaining() > 0 {
		start := r.pos
		id, err := r.readByte()
		if err != nil {
			return nil, err
		}
		size, err := r.readU32()
		if err != nil {
			return nil, err
		}
		body, err := r.readBytes(size)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
		out = append(out, section{id: id, start: start, end: r.pos, body: body})
	}
	return out, nil
}
