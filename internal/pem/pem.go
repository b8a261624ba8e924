// Package pem reframes DER bytes as PEM text and back. It does not parse
// certificates or keys; the body is treated as opaque bytes.
package pem

import (
	"encoding/base64"
	stdpem "encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const lineWidth = 64

var ErrInvalidPEM = errors.New("invalid PEM block")

// Block is a single typed PEM block.
type Block struct {
	typ string
	der []byte
	eol string
}

// FromDER frames der as a PEM block of the given type. The type is
// upper-cased; an empty eol means "\n".
func FromDER(der []byte, typ, eol string) *Block {
	if eol == "" {
		eol = "\n"
	}
	return &Block{
		typ: strings.ToUpper(strings.TrimSpace(typ)),
		der: append([]byte(nil), der...),
		eol: eol,
	}
}

// Parse reads exactly one PEM block from text. CRLF line endings are
// accepted; headers and trailing content are not.
func Parse(text string) (*Block, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	blk, rest := stdpem.Decode([]byte(text))
	if blk == nil {
		return nil, fmt.Errorf("%w: no BEGIN/END block found", ErrInvalidPEM)
	}
	if !validType(blk.Type) {
		return nil, fmt.Errorf("%w: bad type %q", ErrInvalidPEM, blk.Type)
	}
	if len(blk.Headers) > 0 {
		return nil, fmt.Errorf("%w: headers are not supported", ErrInvalidPEM)
	}
	if len(strings.TrimSpace(string(rest))) > 0 {
		return nil, fmt.Errorf("%w: trailing data after END line", ErrInvalidPEM)
	}
	if !strings.HasPrefix(text, "-----BEGIN ") {
		return nil, fmt.Errorf("%w: leading data before BEGIN line", ErrInvalidPEM)
	}

	return &Block{typ: strings.ToUpper(blk.Type), der: blk.Bytes, eol: "\n"}, nil
}

func validType(t string) bool {
	if strings.TrimSpace(t) == "" {
		return false
	}
	for _, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ' ', r == '\t':
		default:
			return false
		}
	}
	return true
}

// Type returns the block type, e.g. "PRIVATE KEY".
func (b *Block) Type() string { return b.typ }

// DER returns a copy of the decoded body.
func (b *Block) DER() ([]byte, error) {
	if len(b.der) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPEM)
	}
	return append([]byte(nil), b.der...), nil
}

// Base64 returns the body as a single unwrapped base64 line.
func (b *Block) Base64() string {
	return base64.StdEncoding.EncodeToString(b.der)
}

// PEM renders the block with its body wrapped at 64 columns.
func (b *Block) PEM() string {
	body := b.Base64()

	var sb strings.Builder
	sb.WriteString("-----BEGIN " + b.typ + "-----" + b.eol)
	for len(body) > lineWidth {
		sb.WriteString(body[:lineWidth] + b.eol)
		body = body[lineWidth:]
	}
	if body != "" {
		sb.WriteString(body + b.eol)
	}
	sb.WriteString("-----END " + b.typ + "-----")
	return sb.String()
}

func (b *Block) String() string { return b.PEM() }
