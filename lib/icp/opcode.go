package icp

import "fmt"

// Opcode is the ICP message kind discriminator.
type Opcode byte

const (
	OpQuery       Opcode = 1
	OpHit         Opcode = 2
	OpMiss        Opcode = 3
	OpErr         Opcode = 4
	OpSecho       Opcode = 10
	OpDecho       Opcode = 11
	OpMissNoFetch Opcode = 21
	OpDenied      Opcode = 22
	OpHitObj      Opcode = 23
)

// Version is the only protocol version this package speaks.
const Version byte = 2

// Option flags carried in the options field.
const (
	// FlagHitObj in a query asks the peer to answer with HIT_OBJ if it can.
	FlagHitObj uint32 = 0x80000000
	// FlagSrcRtt in a query asks for a source RTT measurement; in a response
	// it marks the low 16 bits of the option data as that measurement.
	FlagSrcRtt uint32 = 0x40000000
)

var opcodeNames = map[Opcode]string{
	OpQuery:       "ICP_OP_QUERY",
	OpHit:         "ICP_OP_HIT",
	OpMiss:        "ICP_OP_MISS",
	OpErr:         "ICP_OP_ERR",
	OpSecho:       "ICP_OP_SECHO",
	OpDecho:       "ICP_OP_DECHO",
	OpMissNoFetch: "ICP_OP_MISS_NOFETCH",
	OpDenied:      "ICP_OP_DENIED",
	OpHitObj:      "ICP_OP_HIT_OBJ",
}

// IsValidOpcode reports whether op is one of the defined ICP opcodes:
// 1 through 4, 10, 11 and 21 through 23.
func IsValidOpcode(op byte) bool {
	switch {
	case op >= 1 && op <= 4:
		return true
	case op == 10 || op == 11:
		return true
	case op >= 21 && op <= 23:
		return true
	}
	return false
}

// Valid reports whether o is a defined opcode.
func (o Opcode) Valid() bool {
	return IsValidOpcode(byte(o))
}

// IsResponse reports whether o is one of the answers to a QUERY.
func (o Opcode) IsResponse() bool {
	switch o {
	case OpHit, OpMiss, OpErr, OpMissNoFetch, OpDenied, OpHitObj:
		return true
	}
	return false
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("ICP_OP_UNKNOWN(%d)", byte(o))
}
