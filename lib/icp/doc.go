// Package icp implements the Internet Cache Protocol (ICP version 2, RFC 2186)
// message format used to ask peer caches whether they hold a URL and to answer
// such queries.
//
// # Wire format
//
// Every field is big-endian:
//
//	+--------+---------+-----------------+
//	| opcode | version |  message length |
//	+--------+---------+-----------------+
//	|          request number            |
//	+------------------------------------+
//	|              options               |
//	+------------------------------------+
//	|            option data             |
//	+------------------------------------+
//	|       sender host address          |
//	+------------------------------------+
//	|  requester host address (QUERY)    |
//	+------------------------------------+
//	|  URL ... NUL                        |
//	+------------------------------------+
//	|  object length | object (HIT_OBJ)  |
//	+------------------------------------+
//
// # Representations
//
// A received datagram can be decoded eagerly into an *EagerMessage, which
// copies every field, or lazily into a *LazyMessage, which keeps the buffer
// and extracts fields on demand. Both satisfy Message. Only representations
// that also satisfy Deriver can serve as the basis for every response kind;
// the Builder reports ErrUnsupported for the rest.
//
// # Errors
//
// Malformed datagrams and semantically invalid requests wrap ErrProtocol.
// A nil query handed to the Builder wraps ErrNilMessage. Use errors.Is, or
// the IsProtocolError and IsUnsupported helpers, to tell them apart from I/O
// failures.
package icp
