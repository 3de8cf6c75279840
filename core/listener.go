package core

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/Dyastin-0/grabxfer/logger"
)

// Listener receives one file per Accept call on the transfer port.
type Listener struct {
	cfg   Config
	proto *Proto
	log   logger.Logger

	OnProgress ProgressFunc

	mu    sync.Mutex
	state ListenerState
	ln    *net.TCPListener
}

func NewListener(cfg Config, log logger.Logger) *Listener {
	if log == nil {
		log = logger.Nop()
	}

	return &Listener{
		cfg:   cfg,
		proto: NewProto(cfg.Marker, cfg.Separator),
		log:   log.WithStr("component", "listener"),
		state: StateIdle,
	}
}

func (l *Listener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Addr is nil until Bind succeeds.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Bind claims the transfer port. A port held by anyone else, including
// another Listener in this process, fails with ErrBind.
func (l *Listener) Bind() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateClosed:
		return ErrListenerClosed
	case StateIdle:
	default:
		return nil
	}

	addr := net.JoinHostPort(l.cfg.ListenAddr, strconv.Itoa(l.cfg.TransferPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return wrap(ErrBind, "listen on "+addr, err)
	}

	l.ln = ln.(*net.TCPListener)
	l.state = StateBound
	l.log.WithStr("addr", ln.Addr().String()).Info("listening")

	return nil
}

// Accept blocks for the next connection, receives the file it carries and
// returns to Bound. A sender that closes before the declared size is
// reached yields a truncated Receipt, not an error.
func (l *Listener) Accept(ctx context.Context) (*Receipt, error) {
	l.mu.Lock()
	switch l.state {
	case StateIdle:
		l.mu.Unlock()
		return nil, ErrListenerUnbound
	case StateClosed:
		l.mu.Unlock()
		return nil, ErrListenerClosed
	case StateAccepting, StateReceiving:
		l.mu.Unlock()
		return nil, ErrListenerBusy
	}
	l.state = StateAccepting
	ln := l.ln
	l.mu.Unlock()

	defer l.transition(StateBound)

	conn, err := l.accept(ctx, ln)
	if err != nil {
		return nil, err
	}

	l.transition(StateReceiving)

	return l.receive(ctx, conn)
}

func (l *Listener) accept(ctx context.Context, ln *net.TCPListener) (net.Conn, error) {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		ln.SetDeadline(time.Now())
		close(done)
	})

	conn, err := ln.Accept()

	if !stop() {
		<-done
		ln.SetDeadline(time.Time{})
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, wrap(ErrConnection, "accept", err)
	}

	return conn, nil
}

func (l *Listener) receive(ctx context.Context, conn net.Conn) (*Receipt, error) {
	s := newSession(conn, l.proto, l.cfg.SaveDir, l.cfg.bufferSize(), l.log)
	defer s.close()

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
		close(done)
	})
	defer func() {
		if !stop() {
			<-done
		}
	}()

	s.log.Debug("connection accepted")

	if err := s.readHeader(); err != nil {
		s.log.WithErr(err).Warn("rejected transfer")
		return nil, err
	}

	if err := s.open(); err != nil {
		s.log.WithErr(err).Error("cannot store transfer")
		return nil, err
	}

	if err := s.copy(l.OnProgress); err != nil {
		s.log.WithErr(err).Error("transfer aborted")
		return nil, err
	}

	if err := s.close(); err != nil {
		return nil, err
	}

	r := s.receipt()
	log := s.log.WithStr("path", r.Path).WithAny("declared", r.Declared).WithAny("received", r.Received)
	if r.Truncated() {
		log.Warn("sender closed before declared size")
	} else {
		log.Info("file received")
	}

	return r, nil
}

// transition moves to next unless the listener was closed meanwhile.
func (l *Listener) transition(next ListenerState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateClosed {
		l.state = next
	}
}

func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return nil
	}

	l.state = StateClosed
	if l.ln != nil {
		return l.ln.Close()
	}
	return nil
}

// ReceiveOnce binds, receives a single file and releases the port.
func ReceiveOnce(ctx context.Context, cfg Config, log logger.Logger) (*Receipt, error) {
	l := NewListener(cfg, log)
	if err := l.Bind(); err != nil {
		return nil, err
	}
	defer l.Close()

	return l.Accept(ctx)
}
