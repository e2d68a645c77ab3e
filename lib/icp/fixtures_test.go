package icp

import "net"

var (
	testSender    = net.IPv4(10, 1, 2, 3).To4()
	testRequester = net.IPv4(10, 4, 5, 6).To4()
	testPeer      = net.IPv4(127, 0, 0, 1).To4()
)

const (
	testPeerPort      = 3130
	testURL           = "http://a/"
	testRequestNumber = 0x01020304
)

// urlBytes is testURL followed by its NUL terminator.
var urlBytes = []byte{0x68, 0x74, 0x74, 0x70, 0x3a, 0x2f, 0x2f, 0x61, 0x2f, 0x00}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func testQuery(options uint32) *EagerMessage {
	return NewMessage(Fields{
		Opcode:        OpQuery,
		Version:       Version,
		RequestNumber: testRequestNumber,
		Options:       options,
		Sender:        testSender,
		Requester:     testRequester,
		URL:           testURL,
	})
}
