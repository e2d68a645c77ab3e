package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-i2p/go-icp/lib/config"
	"github.com/go-i2p/go-icp/lib/icp"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type queryOptions struct {
	peer    string
	srcRtt  bool
	hitObj  bool
	timeout time.Duration
	output  string
}

func newQueryCommand() *cobra.Command {
	opts := queryOptions{}
	cmd := &cobra.Command{
		Use:   "query URL",
		Short: "Ask a peer cache whether it holds URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender := net.ParseIP(viper.GetString(config.KeyDaemonAddress))
			response, err := queryPeer(opts, sender, args[0])
			if err != nil {
				return err
			}
			if response.Opcode() == icp.OpHitObj && opts.output != "" {
				if err := os.WriteFile(opts.output, response.PayloadObject(), 0o644); err != nil {
					return oops.Wrapf(err, "writing object to %s", opts.output)
				}
			}
			printResponse(cmd.OutOrStdout(), response)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.peer, "peer", defaultPeer(), "peer cache address (host:port)")
	cmd.Flags().BoolVar(&opts.srcRtt, "src-rtt", false, "ask the peer for a round-trip-time measurement")
	cmd.Flags().BoolVar(&opts.hitObj, "hit-obj", false, "ask the peer to return the object in the response")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Second, "how long to wait for the response")
	cmd.Flags().StringVar(&opts.output, "output", "", "write a returned object to this file")
	return cmd
}

// defaultPeer is the local daemon on the conventional ICP port.
func defaultPeer() string {
	d := config.Defaults().ICP
	return net.JoinHostPort(d.Address, strconv.Itoa(d.Port))
}

// queryPeer sends one QUERY for url and waits for the response carrying
// the same request number. Unrelated datagrams are skipped.
func queryPeer(opts queryOptions, sender net.IP, url string) (icp.Message, error) {
	peer, err := net.ResolveUDPAddr("udp4", opts.peer)
	if err != nil {
		return nil, oops.Wrapf(err, "resolving peer %q", opts.peer)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, oops.Wrapf(err, "opening client socket")
	}
	defer conn.Close()

	factory := icp.NewFactory(sender, false)
	q, err := factory.MakeQuery(sender, url, opts.srcRtt, opts.hitObj)
	if err != nil {
		return nil, err
	}
	out, err := icp.Encoder{}.Encode(q, peer.IP, peer.Port)
	if err != nil {
		return nil, err
	}
	if _, err := conn.WriteToUDP(out.Data, out.Addr); err != nil {
		return nil, oops.Wrapf(err, "sending query to %s", peer)
	}

	if err := conn.SetReadDeadline(time.Now().Add(opts.timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, icp.MaxLength)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, oops.Errorf("no response from %s within %s", peer, opts.timeout)
			}
			return nil, oops.Wrapf(err, "reading response")
		}
		msg, err := factory.Decode(&icp.Datagram{Data: buf[:n], Addr: from})
		if err != nil {
			log.WithError(err).WithField("peer", from.String()).Debug("ignoring undecodable datagram")
			continue
		}
		if msg.IsResponse() && msg.RequestNumber() == q.RequestNumber() {
			return msg, nil
		}
	}
}

func printResponse(w io.Writer, m icp.Message) {
	fmt.Fprintf(w, "%s %s request=%d sender=%s\n",
		m.Opcode(), m.PayloadURL(), m.RequestNumber(), m.SenderAddress())
	if m.ContainsSrcRttResponse() {
		fmt.Fprintf(w, "src_rtt=%d\n", m.SrcRttResponse())
	}
	if m.Opcode() == icp.OpHitObj {
		fmt.Fprintf(w, "object_length=%d\n", m.PayloadObjectLength())
	}
}
