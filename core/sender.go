package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Dyastin-0/grabxfer/logger"
)

const dialTimeout = 10 * time.Second

var (
	ErrNoReceivers      = errors.New("no receivers found")
	ErrNoReceiverChosen = errors.New("no receiver chosen")
)

// ProgressFunc returns a sink that is written every byte of a transfer and
// closed when the transfer ends, complete or not. It may return nil.
type ProgressFunc func(name string, total int64) io.WriteCloser

// Chooser picks one of several discovered receivers.
type Chooser func(receivers []PeerAddress) (PeerAddress, bool)

type Sender struct {
	cfg    Config
	proto  *Proto
	log    logger.Logger
	dialer net.Dialer

	OnProgress ProgressFunc
}

func NewSender(cfg Config, log logger.Logger) *Sender {
	if log == nil {
		log = logger.Nop()
	}

	return &Sender{
		cfg:    cfg,
		proto:  NewProto(cfg.Marker, cfg.Separator),
		log:    log.WithStr("component", "sender"),
		dialer: net.Dialer{Timeout: dialTimeout},
	}
}

// Send streams the file at path to dst: header first, then exactly the
// number of bytes the header declares. The file is opened before any
// network activity, so an unreadable file never produces a connection.
func (s *Sender) Send(ctx context.Context, path string, dst PeerAddress) error {
	file, info, err := openSource(path)
	if err != nil {
		return err
	}
	defer file.Close()

	hd := &TransferHeader{Name: filepath.Base(path), Size: info.Size()}
	header, err := s.proto.SerializeHeader(hd)
	if err != nil {
		return err
	}

	log := s.log.WithStr("file", hd.Name).WithStr("peer", dst.String())

	conn, err := s.dialer.DialContext(ctx, "tcp", dst.String())
	if err != nil {
		return wrap(ErrConnection, "dial "+dst.String(), err)
	}
	defer conn.Close()

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

	if _, err := conn.Write(header); err != nil {
		return wrap(ErrTransfer, "write header", err)
	}

	written, err := s.WriteFile(conn, file, hd)
	if err != nil {
		log.WithErr(err).Error("send failed")
		return err
	}

	if err := conn.Close(); err != nil {
		return wrap(ErrTransfer, "close connection", err)
	}

	log.WithAny("bytes", written).Info("file sent")
	return nil
}

// WriteFile copies hd.Size bytes of src to w in BufferSize chunks.
func (s *Sender) WriteFile(w io.Writer, src io.Reader, hd *TransferHeader) (int64, error) {
	if s.OnProgress != nil {
		if bar := s.OnProgress(hd.Name, hd.Size); bar != nil {
			defer bar.Close()
			w = io.MultiWriter(w, bar)
		}
	}

	buf := make([]byte, s.cfg.bufferSize())
	n, err := io.CopyBuffer(w, io.LimitReader(src, hd.Size), buf)
	if err != nil {
		return n, wrap(ErrTransfer, fmt.Sprintf("after %d of %d bytes", n, hd.Size), err)
	}

	if n != hd.Size {
		return n, wrap(ErrTransfer, fmt.Sprintf("source shrank: read %d of %d bytes", n, hd.Size), nil)
	}

	return n, nil
}

// SendDiscovered runs discovery and sends path to the single receiver found,
// or to the one choose returns when several answer. An unreadable path fails
// before discovery starts.
func (s *Sender) SendDiscovered(ctx context.Context, path string, d Finder, timeout time.Duration, choose Chooser) (PeerAddress, error) {
	file, _, err := openSource(path)
	if err != nil {
		return PeerAddress{}, err
	}
	file.Close()

	set, err := d.Discover(ctx, timeout)
	if err != nil {
		return PeerAddress{}, err
	}

	dst, err := Pick(set, choose)
	if err != nil {
		return PeerAddress{}, err
	}

	return dst, s.Send(ctx, path, dst)
}

// Pick resolves a receiver set to one address.
func Pick(set *ReceiverSet, choose Chooser) (PeerAddress, error) {
	receivers := set.List()

	switch {
	case len(receivers) == 0:
		return PeerAddress{}, ErrNoReceivers
	case len(receivers) == 1 || choose == nil:
		return receivers[0], nil
	}

	dst, ok := choose(receivers)
	if !ok {
		return PeerAddress{}, ErrNoReceiverChosen
	}

	return dst, nil
}

func openSource(path string) (*os.File, os.FileInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, wrap(ErrFileAccess, "open "+path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, wrap(ErrFileAccess, "stat "+path, err)
	}

	if !info.Mode().IsRegular() {
		file.Close()
		return nil, nil, wrap(ErrFileAccess, path+" is not a regular file", nil)
	}

	return file, info, nil
}
