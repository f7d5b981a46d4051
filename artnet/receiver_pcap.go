package artnet

import (
	"log/slog"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// PcapReceiver listens for ArtNet packets via passive packet capture instead
// of binding the UDP socket directly. Useful when another process (a
// console's own network monitor, a second bridge instance) already holds
// :6454 — this receiver only observes traffic, it never binds the port.
// Requires capture privileges (root, or CAP_NET_RAW on Linux).
type PcapReceiver struct {
	handle  *pcap.Handle
	handler FrameHandler
	logger  *slog.Logger
	done    chan struct{}
}

// NewPcapReceiver opens iface for live capture and filters to Art-Net's UDP
// port.
func NewPcapReceiver(iface string, handler FrameHandler, logger *slog.Logger) (*PcapReceiver, error) {
	handle, err := pcap.OpenLive(iface, 2048, true, pcap.BlockForever)
	if err != nil {
		return nil, err
	}

	if err := handle.SetBPFFilter("udp port 6454"); err != nil {
		handle.Close()
		return nil, err
	}

	return &PcapReceiver{
		handle:  handle,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start begins receiving packets in a background goroutine.
func (r *PcapReceiver) Start() {
	go r.receiveLoop()
}

// Stop stops the receiver and closes the capture handle.
func (r *PcapReceiver) Stop() {
	close(r.done)
	r.handle.Close()
}

func (r *PcapReceiver) receiveLoop() {
	source := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	for {
		select {
		case <-r.done:
			return
		case packet, ok := <-source.Packets():
			if !ok {
				return
			}
			r.handlePacket(packet)
		}
	}
}

func (r *PcapReceiver) handlePacket(packet gopacket.Packet) {
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return
	}

	var srcIP net.IP
	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		if ip, ok := ipLayer.(*layers.IPv4); ok {
			srcIP = ip.SrcIP
		}
	}
	if srcIP == nil {
		return
	}

	frame, err := Parse(udp.Payload)
	if err != nil {
		return
	}

	src := &net.UDPAddr{IP: srcIP, Port: int(udp.SrcPort)}
	r.handler(src, frame)
}
