package core

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"
)

const (
	beaconDelim = "|"

	// SizeEnd terminates the size field of a transfer header.
	SizeEnd = '\n'

	// MaxSizeDigits bounds the decimal filesize field to what fits an int64.
	MaxSizeDigits = 19
)

// Beacon is the decoded form of a discovery datagram.
type Beacon struct {
	Marker string
	Port   int
}

// TransferHeader precedes the file bytes on every transfer connection.
type TransferHeader struct {
	Name string
	Size int64
}

// Proto handles the discovery and transfer wire formats:
//
//	beacon: <marker>|<port>
//	header: <name><separator><size>\n
//
// The beacon has no trailing delimiter. The header ends with a newline so
// content that starts with digits cannot be read as part of the size.
type Proto struct {
	marker    string
	separator string
}

func NewProto(marker, separator string) *Proto {
	return &Proto{
		marker:    marker,
		separator: separator,
	}
}

// SerializeBeacon encodes an announcement for port.
func (p *Proto) SerializeBeacon(port int) ([]byte, error) {
	if !validPort(port) {
		return nil, fmt.Errorf("%w: port %d out of range", ErrMalformedBeacon, port)
	}

	return fmt.Appendf(nil, "%s%s%d", p.marker, beaconDelim, port), nil
}

// DeserializeBeacon accepts only datagrams whose marker matches exactly and
// whose port parses into 1-65535.
func (p *Proto) DeserializeBeacon(data []byte) (*Beacon, error) {
	if !bytes.HasPrefix(data, []byte(p.marker)) {
		return nil, ErrMalformedBeacon
	}

	parts := strings.Split(string(data), beaconDelim)
	if len(parts) != 2 || parts[0] != p.marker {
		return nil, ErrMalformedBeacon
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBeacon, err)
	}

	if !validPort(port) {
		return nil, fmt.Errorf("%w: port %d out of range", ErrMalformedBeacon, port)
	}

	return &Beacon{Marker: parts[0], Port: port}, nil
}

// SerializeHeader encodes h. Names containing the separator are refused,
// the receiver would have no way to split them.
func (p *Proto) SerializeHeader(h *TransferHeader) ([]byte, error) {
	if h.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrMalformedHeader, h.Size)
	}

	if h.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrMalformedHeader)
	}

	if strings.Contains(h.Name, p.separator) {
		return nil, fmt.Errorf("%w: name %q contains separator", ErrMalformedHeader, h.Name)
	}

	return fmt.Appendf(nil, "%s%s%d%c", h.Name, p.separator, h.Size, SizeEnd), nil
}

// HeaderEnd returns the offset just past the size terminator in data, or -1
// while the header is still incomplete.
func (p *Proto) HeaderEnd(data []byte) int {
	i := bytes.Index(data, []byte(p.separator))
	if i < 0 {
		return -1
	}

	start := i + len(p.separator)
	j := bytes.IndexByte(data[start:], SizeEnd)
	if j < 0 {
		return -1
	}
	return start + j + 1
}

// DeserializeHeader splits data at the first separator, parses the decimal
// size up to the terminator and returns whatever follows the terminator as
// the first bytes of file content.
func (p *Proto) DeserializeHeader(data []byte) (*TransferHeader, []byte, error) {
	i := bytes.Index(data, []byte(p.separator))
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: no separator", ErrMalformedHeader)
	}

	name := string(data[:i])
	rest := data[i+len(p.separator):]

	j := bytes.IndexByte(rest, SizeEnd)
	if j < 0 {
		return nil, nil, fmt.Errorf("%w: size is not terminated", ErrMalformedHeader)
	}

	field := rest[:j]
	if len(field) == 0 || len(field) > MaxSizeDigits {
		return nil, nil, fmt.Errorf("%w: size field of %d bytes", ErrMalformedHeader, len(field))
	}

	for _, c := range field {
		if c < '0' || c > '9' {
			return nil, nil, fmt.Errorf("%w: size %q is not a number", ErrMalformedHeader, field)
		}
	}

	size, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	return &TransferHeader{Name: name, Size: size}, rest[j+1:], nil
}

// BaseName strips every directory component from name, whichever path
// convention the sender used.
func BaseName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(strings.TrimSpace(name))

	if base == "." || base == ".." || base == "/" || base == "" {
		return "", fmt.Errorf("%w: unusable file name %q", ErrMalformedHeader, name)
	}

	return base, nil
}
