package icp

import (
	"errors"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// ICP error sentinels. These use errors.New (not oops.Errorf) so callers can
// match wrapped errors with errors.Is().
var (
	// ErrProtocol marks bad peer data (length mismatch, invalid opcode or
	// version, truncated URL or object) and semantically invalid requests
	// such as asking for an RTT response the query never requested.
	ErrProtocol = errors.New("icp protocol error")

	// ErrUnsupported marks a Builder operation that the given message
	// representation cannot serve. The input is valid; decode it eagerly.
	ErrUnsupported = errors.New("icp operation unsupported by message representation")

	// ErrNilMessage marks a nil query passed where a message is required.
	ErrNilMessage = errors.New("icp message is nil")
)

// IsProtocolError reports whether err stems from malformed or semantically
// invalid ICP data.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}

// IsUnsupported reports whether err stems from a capability gap of the
// message representation.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
