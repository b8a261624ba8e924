package envelope

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	magic      = "CBX"
	version    = 1
	terminator = '.'

	// headerSize covers magic, version, kind and shape.
	headerSize = len(magic) + 3
)

// Envelope is the type-tagged plaintext placed around a value before
// encryption. It is built right before encryption and rebuilt right after
// decryption; it is never stored on its own.
type Envelope struct {
	kind    Kind
	shape   Shape
	payload []byte
}

// Wrap classifies x with ValueOf and builds its envelope.
func Wrap(x any) (*Envelope, error) {
	v, err := ValueOf(x)
	if err != nil {
		return nil, err
	}

	e := &Envelope{kind: v.kind, shape: v.shape}
	switch v.kind {
	case KindInt:
		e.payload = binary.BigEndian.AppendUint64(nil, uint64(v.v.(int64)))
	case KindFloat:
		e.payload = binary.BigEndian.AppendUint64(nil, math.Float64bits(v.v.(float64)))
	case KindString:
		e.payload = []byte(v.v.(string))
	case KindComposite:
		if e.payload, err = encodeNode(nil, v.v, 0); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.kind)
	}
	return e, nil
}

// Kind reports the stored type tag.
func (e *Envelope) Kind() Kind { return e.kind }

// Shape reports the stored composite shape.
func (e *Envelope) Shape() Shape { return e.shape }

// MarshalBinary serializes the envelope:
//
//	"CBX" | version | kind | shape | uvarint(len(payload)) | payload | '.'
//
// The terminator keeps the last plaintext byte non-zero, so zero padding
// added by the cipher layer can always be stripped.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, headerSize+binary.MaxVarintLen64+len(e.payload)+1)
	buf = append(buf, magic...)
	buf = append(buf, version, byte(e.kind), byte(e.shape))
	buf = binary.AppendUvarint(buf, uint64(len(e.payload)))
	buf = append(buf, e.payload...)
	return append(buf, terminator), nil
}

// Unmarshal parses bytes produced by MarshalBinary. Any framing defect
// yields ErrCorruptEnvelope.
func Unmarshal(b []byte) (*Envelope, error) {
	if len(b) < headerSize+2 {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCorruptEnvelope, len(b))
	}
	if string(b[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptEnvelope)
	}
	if b[3] != version {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorruptEnvelope, b[3])
	}

	e := &Envelope{kind: Kind(b[4]), shape: Shape(b[5])}
	switch e.kind {
	case KindInt, KindFloat, KindString:
		if e.shape != ShapeNone {
			return nil, fmt.Errorf("%w: scalar %s carries shape %#x", ErrCorruptEnvelope, e.kind, byte(e.shape))
		}
	case KindComposite:
		switch e.shape {
		case ShapeList, ShapeMap, ShapeRecord, ShapeExtension:
		default:
			return nil, fmt.Errorf("%w: unknown shape %#x", ErrCorruptEnvelope, byte(e.shape))
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrCorruptEnvelope, b[4])
	}

	rest := b[headerSize:]
	n, used := binary.Uvarint(rest)
	if used <= 0 {
		return nil, fmt.Errorf("%w: bad payload length", ErrCorruptEnvelope)
	}
	rest = rest[used:]
	if n >= uint64(len(rest)) || uint64(len(rest)) != n+1 || rest[n] != terminator {
		return nil, fmt.Errorf("%w: payload length mismatch", ErrCorruptEnvelope)
	}
	e.payload = append([]byte(nil), rest[:n]...)

	if (e.kind == KindInt || e.kind == KindFloat) && len(e.payload) != 8 {
		return nil, fmt.Errorf("%w: %s payload is %d bytes", ErrCorruptEnvelope, e.kind, len(e.payload))
	}
	return e, nil
}

// Unwrap recovers the stored value. Composite payloads are decoded in full
// and the decoded shape must match the stored one; any disagreement is
// reported as ErrTypeIntegrity. reg resolves caller-supplied composites and
// may be nil.
func (e *Envelope) Unwrap(reg *Registry) (Value, error) {
	switch e.kind {
	case KindInt:
		return Int(int64(binary.BigEndian.Uint64(e.payload))), nil
	case KindFloat:
		return Float(math.Float64frombits(binary.BigEndian.Uint64(e.payload))), nil
	case KindString:
		return String(string(e.payload)), nil
	case KindComposite:
		d := &decoder{buf: e.payload, reg: reg}
		n, err := d.node(0)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s: %v", ErrTypeIntegrity, e.shape, err)
		}
		if d.remaining() != 0 {
			return Value{}, fmt.Errorf("%w: %d trailing bytes after %s", ErrTypeIntegrity, d.remaining(), e.shape)
		}
		if got := shapeOf(n); got != e.shape {
			return Value{}, fmt.Errorf("%w: stored %s, decoded %s", ErrTypeIntegrity, e.shape, got)
		}
		return Value{kind: KindComposite, shape: e.shape, v: n}, nil
	}
	return Value{}, fmt.Errorf("%w: unknown kind %d", ErrTypeIntegrity, e.kind)
}

// Seal wraps x and serializes the envelope in one step.
func Seal(x any) ([]byte, error) {
	e, err := Wrap(x)
	if err != nil {
		return nil, err
	}
	return e.MarshalBinary()
}

// Open parses and unwraps a serialized envelope.
func Open(b []byte, reg *Registry) (Value, error) {
	e, err := Unmarshal(b)
	if err != nil {
		return Value{}, err
	}
	return e.Unwrap(reg)
}
