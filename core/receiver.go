package core

import (
	"context"
	"errors"
	"net"

	"github.com/Dyastin-0/grabxfer/logger"
	"golang.org/x/sync/errgroup"
)

// Receiver is the receiving peer: a Listener that is advertised by a
// Responder for as long as it is willing to accept files.
type Receiver struct {
	listener  *Listener
	responder *Responder
	log       logger.Logger

	// Keep accepts files until ctx ends. Without it the responder stops
	// and Run returns after the first file.
	Keep bool

	OnFile func(*Receipt)
}

func NewReceiver(cfg Config, log logger.Logger) *Receiver {
	if log == nil {
		log = logger.Nop()
	}

	return &Receiver{
		listener:  NewListener(cfg, log),
		responder: NewResponder(cfg, log),
		log:       log.WithStr("component", "receiver"),
	}
}

func (r *Receiver) Listener() *Listener {
	return r.listener
}

// Run binds the transfer port, starts advertising it and receives files.
// Cancelling ctx stops both and is not reported as an error.
func (r *Receiver) Run(ctx context.Context) error {
	if err := r.listener.Bind(); err != nil {
		return err
	}
	defer r.listener.Close()

	port := r.listener.Addr().(*net.TCPAddr).Port

	g, gctx := errgroup.WithContext(ctx)
	advertise, stopAdvertising := context.WithCancel(gctx)

	g.Go(func() error {
		return r.responder.Start(advertise, port)
	})

	g.Go(func() error {
		defer stopAdvertising()
		return r.acceptLoop(gctx)
	})

	return g.Wait()
}

func (r *Receiver) acceptLoop(ctx context.Context) error {
	for {
		receipt, err := r.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if r.Keep && (errors.Is(err, ErrProtocol) || errors.Is(err, ErrTransfer)) {
				r.log.WithErr(err).Warn("dropped transfer")
				continue
			}

			return err
		}

		if r.OnFile != nil {
			r.OnFile(receipt)
		}

		if !r.Keep {
			return nil
		}
	}
}
