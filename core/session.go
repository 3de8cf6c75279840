package core

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/Dyastin-0/grabxfer/logger"
	"github.com/google/uuid"
)

// Receipt describes one received file. Received is smaller than Declared
// when the sender closed early; the file is kept as is.
type Receipt struct {
	Session  string
	Remote   string
	Name     string
	Path     string
	Declared int64
	Received int64
}

func (r *Receipt) Truncated() bool {
	return r.Received < r.Declared
}

// session owns one accepted connection and its destination file.
type session struct {
	id    string
	conn  net.Conn
	proto *Proto
	dir   string
	buf   []byte
	log   logger.Logger

	header   *TransferHeader
	leftover []byte
	file     *os.File
	path     string
	received int64
}

func newSession(conn net.Conn, proto *Proto, dir string, bufSize int, log logger.Logger) *session {
	id := uuid.NewString()

	return &session{
		id:    id,
		conn:  conn,
		proto: proto,
		dir:   dir,
		buf:   make([]byte, bufSize),
		log:   log.WithStr("session", id).WithStr("remote", conn.RemoteAddr().String()),
	}
}

// readHeader reads until the size terminator is buffered, or the peer
// stops sending.
func (s *session) readHeader() error {
	n := 0
	for {
		if s.proto.HeaderEnd(s.buf[:n]) >= 0 {
			break
		}

		if n == len(s.buf) {
			return fmt.Errorf("%w: no header within %d bytes", ErrMalformedHeader, len(s.buf))
		}

		m, err := s.conn.Read(s.buf[n:])
		n += m
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return wrap(ErrTransfer, "read header", err)
		}
	}

	hd, leftover, err := s.proto.DeserializeHeader(s.buf[:n])
	if err != nil {
		return err
	}

	s.header = hd
	s.leftover = leftover
	return nil
}

// open creates the destination inside dir using only the base name the
// peer sent.
func (s *session) open() error {
	name, err := BaseName(s.header.Name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return wrap(ErrFileAccess, "create "+s.dir, err)
	}

	s.path = filepath.Join(s.dir, name)

	file, err := os.Create(s.path)
	if err != nil {
		return wrap(ErrFileAccess, "create "+s.path, err)
	}

	s.file = file
	return nil
}

// copy writes at most header.Size bytes, stopping early on EOF.
func (s *session) copy(progress ProgressFunc) error {
	var w io.Writer = s.file

	if progress != nil {
		if bar := progress(filepath.Base(s.path), s.header.Size); bar != nil {
			defer bar.Close()
			w = io.MultiWriter(s.file, bar)
		}
	}

	head := s.leftover
	if int64(len(head)) > s.header.Size {
		head = head[:s.header.Size]
	}

	if len(head) > 0 {
		n, err := w.Write(head)
		s.received += int64(n)
		if err != nil {
			return wrap(ErrFileAccess, "write "+s.path, err)
		}
	}

	remaining := s.header.Size - s.received
	if remaining <= 0 {
		return nil
	}

	n, err := io.CopyBuffer(w, io.LimitReader(s.conn, remaining), s.buf)
	s.received += n
	if err != nil {
		return wrap(ErrTransfer, fmt.Sprintf("after %d of %d bytes", s.received, s.header.Size), err)
	}

	return nil
}

func (s *session) close() error {
	var err error
	if s.file != nil {
		if cerr := s.file.Close(); cerr != nil {
			err = wrap(ErrFileAccess, "close "+s.path, cerr)
		}
		s.file = nil
	}
	s.conn.Close()
	return err
}

func (s *session) receipt() *Receipt {
	return &Receipt{
		Session:  s.id,
		Remote:   s.conn.RemoteAddr().String(),
		Name:     filepath.Base(s.path),
		Path:     s.path,
		Declared: s.header.Size,
		Received: s.received,
	}
}
