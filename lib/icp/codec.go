package icp

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/go-i2p/common/data"
	"github.com/samber/oops"
)

// Field offsets from the start of a datagram.
const (
	offsetOpcode        = 0
	offsetVersion       = 1
	offsetLength        = 2
	offsetRequestNumber = 4
	offsetOptions       = 8
	offsetOptionData    = 12
	offsetSender        = 16
	offsetRequester     = 20
)

const (
	// HeaderSize covers the fixed fields opcode through sender address.
	HeaderSize = 20
	// AddressSize is the size of an IPv4 host address field.
	AddressSize = 4
	// ObjectLengthSize is the size of the HIT_OBJ object length prefix.
	ObjectLengthSize = 2
	// MaxLength is the largest length the 16-bit length field can declare.
	MaxLength = 65535
)

// ComputeLength returns the wire length of a message with the given opcode,
// URL byte length and HIT_OBJ object length. objectLen is ignored unless op
// is OpHitObj.
func ComputeLength(op Opcode, urlLen, objectLen int) int {
	length := HeaderSize + urlLen + 1
	if op == OpQuery {
		length += AddressSize
	}
	if op == OpHitObj {
		length += ObjectLengthSize + objectLen
	}
	return length
}

// MessageLength returns the wire length m encodes to.
func MessageLength(m Message) int {
	return ComputeLength(m.Opcode(), len(m.PayloadURL()), m.PayloadObjectLength())
}

// The readers below take the buffer as is. Callers must have checked that
// it is at least HeaderSize bytes long.

// ReadOpcode returns the opcode byte of buf.
func ReadOpcode(buf []byte) Opcode {
	return Opcode(buf[offsetOpcode])
}

// ReadVersion returns the version byte of buf.
func ReadVersion(buf []byte) byte {
	return buf[offsetVersion]
}

// ReadLength returns the declared message length of buf.
func ReadLength(buf []byte) int {
	return data.Integer(buf[offsetLength : offsetLength+2]).Int()
}

// ReadRequestNumber returns the request number of buf.
func ReadRequestNumber(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[offsetRequestNumber:])
}

// ReadOptions returns the option flags of buf.
func ReadOptions(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[offsetOptions:])
}

// ReadOptionData returns the option data of buf.
func ReadOptionData(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[offsetOptionData:])
}

// ReadSender returns a copy of the sender address of buf.
func ReadSender(buf []byte) net.IP {
	return readAddress(buf, offsetSender)
}

// ReadRequester returns a copy of the requester address of buf. The field
// only exists in QUERY messages and buf must be long enough to hold it.
func ReadRequester(buf []byte) net.IP {
	return readAddress(buf, offsetRequester)
}

func readAddress(buf []byte, offset int) net.IP {
	return net.IPv4(buf[offset], buf[offset+1], buf[offset+2], buf[offset+3]).To4()
}

// URLOffset returns where the URL starts for a message with opcode op.
func URLOffset(op Opcode) int {
	if op == OpQuery {
		return offsetRequester + AddressSize
	}
	return HeaderSize
}

// frame records where the variable-length parts of a datagram live.
type frame struct {
	urlStart  int
	urlEnd    int // index of the NUL terminator
	objStart  int
	objLength int
}

// scanFrame checks that buf is a well-formed ICP datagram and locates its
// URL and HIT_OBJ payload. Every failure wraps ErrProtocol.
func scanFrame(buf []byte) (frame, error) {
	var f frame
	if len(buf) < HeaderSize {
		return f, protocolErrorf("datagram of %d bytes is shorter than the %d byte header", len(buf), HeaderSize)
	}
	op := ReadOpcode(buf)
	if !op.Valid() {
		return f, protocolErrorf("invalid opcode %d", byte(op))
	}
	if v := ReadVersion(buf); v != Version {
		return f, protocolErrorf("unsupported version %d", v)
	}
	if declared := ReadLength(buf); declared != len(buf) {
		return f, protocolErrorf("declared length %d does not match datagram size %d", declared, len(buf))
	}

	f.urlStart = URLOffset(op)
	if len(buf) < f.urlStart {
		return f, protocolErrorf("%s datagram truncated before URL", op)
	}
	nul := bytes.IndexByte(buf[f.urlStart:], 0)
	if nul < 0 {
		return f, protocolErrorf("URL is not NUL-terminated")
	}
	f.urlEnd = f.urlStart + nul
	pos := f.urlEnd + 1

	if op == OpHitObj {
		if len(buf) < pos+ObjectLengthSize {
			return f, protocolErrorf("HIT_OBJ datagram truncated before object length")
		}
		f.objLength = data.Integer(buf[pos : pos+ObjectLengthSize]).Int()
		pos += ObjectLengthSize
		if len(buf) < pos+f.objLength {
			return f, protocolErrorf("HIT_OBJ object of %d bytes truncated to %d", f.objLength, len(buf)-pos)
		}
		f.objStart = pos
		pos += f.objLength
	}
	if pos != len(buf) {
		return f, protocolErrorf("%d trailing bytes after %s payload", len(buf)-pos, op)
	}
	return f, nil
}

func protocolErrorf(format string, args ...interface{}) error {
	return oops.Wrapf(ErrProtocol, format, args...)
}
