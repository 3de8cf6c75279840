package core

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Dyastin-0/grabxfer/logger"
)

const maxDatagramSize = 1024

// Finder runs one discovery window.
type Finder interface {
	Discover(ctx context.Context, timeout time.Duration) (*ReceiverSet, error)
}

// Discoverer collects advertising receivers.
type Discoverer struct {
	cfg   Config
	proto *Proto
	log   logger.Logger
}

func NewDiscoverer(cfg Config, log logger.Logger) *Discoverer {
	if log == nil {
		log = logger.Nop()
	}

	return &Discoverer{
		cfg:   cfg,
		proto: NewProto(cfg.Marker, cfg.Separator),
		log:   log.WithStr("component", "discovery"),
	}
}

// Discover listens on the discovery port for timeout and returns every
// receiver that sent a valid beacon. An empty set is a normal result; an
// error is returned only when the port cannot be bound or ctx ends early.
func (d *Discoverer) Discover(ctx context.Context, timeout time.Duration) (*ReceiverSet, error) {
	set := NewReceiverSet()

	addr := net.JoinHostPort("", strconv.Itoa(d.cfg.DiscoveryPort))
	lc := net.ListenConfig{Control: broadcastControl}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return set, wrap(ErrBind, "listen on "+addr, err)
	}
	defer pc.Close()

	if err := pc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return set, wrap(ErrBind, "set deadline", err)
	}

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		pc.SetReadDeadline(time.Now())
		close(done)
	})
	defer func() {
		if !stop() {
			<-done
		}
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := pc.ReadFrom(buf)
		if n > 0 {
			d.collect(set, buf[:n], from)
		}

		if err == nil {
			continue
		}

		if errors.Is(err, os.ErrDeadlineExceeded) {
			d.log.WithInt("receivers", set.Len()).Debug("discovery window closed")
			return set, ctx.Err()
		}

		if errors.Is(err, net.ErrClosed) {
			return set, ctx.Err()
		}

		d.log.WithErr(err).Warn("read beacon")
	}
}

func (d *Discoverer) collect(set *ReceiverSet, data []byte, from net.Addr) {
	udp, ok := from.(*net.UDPAddr)
	if !ok {
		return
	}

	beacon, err := d.proto.DeserializeBeacon(data)
	if err != nil {
		d.log.WithStr("from", udp.String()).WithErr(err).Debug("discarded datagram")
		return
	}

	peer, err := NewPeerAddress(udp.IP.String(), beacon.Port)
	if err != nil {
		return
	}

	if set.Add(peer) {
		d.log.WithStr("peer", peer.String()).Info("found receiver")
	}
}
