package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// maxDepth bounds nesting on both encode and decode.
const maxDepth = 64

// Element tags for scalar members of a composite. Composite members reuse
// their Shape byte as tag.
const (
	tagNull   byte = 'n'
	tagBool   byte = 'b'
	tagInt    byte = 'i'
	tagFloat  byte = 'f'
	tagString byte = 's'
	tagBytes  byte = 'y'
)

var errTruncated = errors.New("truncated structure")

// encodeNode appends the tag-length-value encoding of a normalized value.
func encodeNode(buf []byte, n any, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedType, maxDepth)
	}

	switch t := n.(type) {
	case nil:
		return append(buf, tagNull), nil
	case bool:
		if t {
			return append(buf, tagBool, 1), nil
		}
		return append(buf, tagBool, 0), nil
	case int64:
		buf = append(buf, tagInt)
		return binary.BigEndian.AppendUint64(buf, uint64(t)), nil
	case float64:
		buf = append(buf, tagFloat)
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(t)), nil
	case string:
		return appendBlob(append(buf, tagString), []byte(t)), nil
	case []byte:
		return appendBlob(append(buf, tagBytes), t), nil
	case Composite:
		data, err := t.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedType, t.CompositeName(), err)
		}
		buf = appendBlob(append(buf, byte(ShapeExtension)), []byte(t.CompositeName()))
		return appendBlob(buf, data), nil
	case List:
		buf = binary.AppendUvarint(append(buf, byte(ShapeList)), uint64(len(t)))
		var err error
		for _, e := range t {
			if buf, err = encodeNode(buf, e, depth+1); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case Map:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = binary.AppendUvarint(append(buf, byte(ShapeMap)), uint64(len(keys)))
		var err error
		for _, k := range keys {
			buf = appendBlob(buf, []byte(k))
			if buf, err = encodeNode(buf, t[k], depth+1); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case *Record:
		buf = appendBlob(append(buf, byte(ShapeRecord)), []byte(t.Name))
		buf = binary.AppendUvarint(buf, uint64(len(t.Fields)))
		var err error
		for _, f := range t.Fields {
			buf = appendBlob(buf, []byte(f.Name))
			if buf, err = encodeNode(buf, f.Value, depth+1); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, n)
}

func appendBlob(buf, b []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// decoder reads the structural encoding produced by encodeNode.
type decoder struct {
	buf []byte
	off int
	reg *Registry
}

func (d *decoder) remaining() int { return len(d.buf) - d.off }

func (d *decoder) readByte() (byte, error) {
	if d.off >= len(d.buf) {
		return 0, errTruncated
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		return 0, errTruncated
	}
	d.off += n
	return v, nil
}

func (d *decoder) next(n uint64) ([]byte, error) {
	if n > uint64(d.remaining()) {
		return nil, errTruncated
	}
	b := d.buf[d.off : d.off+int(n)]
	d.off += int(n)
	return b, nil
}

func (d *decoder) blob() ([]byte, error) {
	n, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	return d.next(n)
}

// count reads an element count and rejects counts the remaining input could
// not possibly hold, so hostile lengths never drive allocation.
func (d *decoder) count(minSize int) (int, error) {
	n, err := d.uvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(d.remaining()/minSize) {
		return 0, fmt.Errorf("element count %d exceeds input", n)
	}
	return int(n), nil
}

func (d *decoder) node(depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting deeper than %d", maxDepth)
	}

	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagNull:
		return nil, nil
	case tagBool:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, fmt.Errorf("invalid bool byte %#x", b)
		}
		return b == 1, nil
	case tagInt:
		b, err := d.next(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case tagFloat:
		b, err := d.next(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case tagString:
		b, err := d.blob()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBytes:
		b, err := d.blob()
		if err != nil {
			return nil, err
		}
		return append([]byte{}, b...), nil
	case byte(ShapeList):
		return d.list(depth)
	case byte(ShapeMap):
		return d.mapping(depth)
	case byte(ShapeRecord):
		return d.record(depth)
	case byte(ShapeExtension):
		return d.extension()
	}
	return nil, fmt.Errorf("unknown tag %#x", tag)
}

func (d *decoder) list(depth int) (any, error) {
	n, err := d.count(1)
	if err != nil {
		return nil, err
	}
	l := make(List, n)
	for i := range l {
		if l[i], err = d.node(depth + 1); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (d *decoder) mapping(depth int) (any, error) {
	n, err := d.count(2)
	if err != nil {
		return nil, err
	}
	m := make(Map, n)
	prev := ""
	for i := 0; i < n; i++ {
		k, err := d.blob()
		if err != nil {
			return nil, err
		}
		key := string(k)
		if i > 0 && key <= prev {
			return nil, fmt.Errorf("map keys out of order at %q", key)
		}
		prev = key
		if m[key], err = d.node(depth + 1); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (d *decoder) record(depth int) (any, error) {
	name, err := d.blob()
	if err != nil {
		return nil, err
	}
	n, err := d.count(2)
	if err != nil {
		return nil, err
	}
	r := &Record{Name: string(name), Fields: make([]Field, n)}
	seen := make(map[string]struct{}, n)
	for i := range r.Fields {
		fn, err := d.blob()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[string(fn)]; dup {
			return nil, fmt.Errorf("record %q repeats field %q", r.Name, fn)
		}
		seen[string(fn)] = struct{}{}
		val, err := d.node(depth + 1)
		if err != nil {
			return nil, err
		}
		r.Fields[i] = Field{Name: string(fn), Value: val}
	}
	return r, nil
}

func (d *decoder) extension() (any, error) {
	name, err := d.blob()
	if err != nil {
		return nil, err
	}
	data, err := d.blob()
	if err != nil {
		return nil, err
	}
	factory, ok := d.reg.lookup(string(name))
	if !ok {
		return nil, fmt.Errorf("composite %q is not registered", name)
	}
	c := factory()
	if err := c.UnmarshalBinary(append([]byte(nil), data...)); err != nil {
		return nil, fmt.Errorf("composite %q: %w", name, err)
	}
	if c.CompositeName() != string(name) {
		return nil, fmt.Errorf("composite %q decoded as %q", name, c.CompositeName())
	}
	return c, nil
}
