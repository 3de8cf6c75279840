package core

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/Dyastin-0/grabxfer/logger"
	"golang.org/x/net/ipv4"
)

// Responder announces a transfer port to the broadcast domain.
type Responder struct {
	cfg   Config
	proto *Proto
	log   logger.Logger
}

func NewResponder(cfg Config, log logger.Logger) *Responder {
	if log == nil {
		log = logger.Nop()
	}

	return &Responder{
		cfg:   cfg,
		proto: NewProto(cfg.Marker, cfg.Separator),
		log:   log.WithStr("component", "responder"),
	}
}

// Start sends a beacon for port immediately and then once per
// BeaconInterval until ctx is done. Only socket setup errors are returned;
// a failed send is logged and retried on the next tick.
func (r *Responder) Start(ctx context.Context, port int) error {
	payload, err := r.proto.SerializeBeacon(port)
	if err != nil {
		return err
	}

	target := net.JoinHostPort(r.cfg.BroadcastAddr, strconv.Itoa(r.cfg.DiscoveryPort))
	dst, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return wrap(ErrBind, "resolve "+target, err)
	}

	lc := net.ListenConfig{Control: broadcastControl}
	pc, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return wrap(ErrBind, "open beacon socket", err)
	}
	defer pc.Close()

	if r.cfg.BeaconTTL > 0 {
		if err := ipv4.NewPacketConn(pc).SetTTL(r.cfg.BeaconTTL); err != nil {
			return wrap(ErrBind, "set beacon ttl", err)
		}
	}

	log := r.log.WithInt("port", port).WithStr("target", target)
	log.Info("advertising")

	ticker := time.NewTicker(r.cfg.BeaconInterval)
	defer ticker.Stop()

	r.send(pc, payload, dst, log)

	for {
		select {
		case <-ctx.Done():
			log.Info("stopped advertising")
			return nil
		case <-ticker.C:
			r.send(pc, payload, dst, log)
		}
	}
}

func (r *Responder) send(pc net.PacketConn, payload []byte, dst net.Addr, log logger.Logger) {
	if _, err := pc.WriteTo(payload, dst); err != nil {
		log.WithErr(err).Warn("beacon send failed")
	}
}
