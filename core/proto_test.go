package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeaconWireFormat(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	b, err := p.SerializeBeacon(5001)
	require.NoError(t, err)
	assert.Equal(t, "GRAB_TRANSFER_RECEIVER|5001", string(b))

	beacon, err := p.DeserializeBeacon(b)
	require.NoError(t, err)
	assert.Equal(t, DefaultMarker, beacon.Marker)
	assert.Equal(t, 5001, beacon.Port)
}

func TestSerializeBeaconRejectsBadPort(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	_, err := p.SerializeBeacon(0)
	assert.ErrorIs(t, err, ErrMalformedBeacon)

	_, err = p.SerializeBeacon(65536)
	assert.ErrorIs(t, err, ErrMalformedBeacon)
}

func TestDeserializeBeaconRejects(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	cases := map[string]string{
		"wrong marker":     "SOMETHING_ELSE|5001",
		"longer marker":    "GRAB_TRANSFER_RECEIVERX|5001",
		"no delimiter":     "GRAB_TRANSFER_RECEIVER5001",
		"extra field":      "GRAB_TRANSFER_RECEIVER|5001|7",
		"port not numeric": "GRAB_TRANSFER_RECEIVER|abc",
		"port zero":        "GRAB_TRANSFER_RECEIVER|0",
		"port too large":   "GRAB_TRANSFER_RECEIVER|70000",
		"empty":            "",
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.DeserializeBeacon([]byte(payload))
			assert.ErrorIs(t, err, ErrMalformedBeacon)
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestHeaderWireFormat(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	b, err := p.SerializeHeader(&TransferHeader{Name: "photo.png", Size: 1234})
	require.NoError(t, err)
	assert.Equal(t, "photo.png<SEPARATOR>1234\n", string(b))

	hd, leftover, err := p.DeserializeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", hd.Name)
	assert.Equal(t, int64(1234), hd.Size)
	assert.Empty(t, leftover)
}

func TestDeserializeHeaderKeepsContentPrefix(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	hd, leftover, err := p.DeserializeHeader([]byte("a.txt<SEPARATOR>5\nhello"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", hd.Name)
	assert.Equal(t, int64(5), hd.Size)
	assert.Equal(t, "hello", string(leftover))
}

func TestDeserializeHeaderDigitContent(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	hd, leftover, err := p.DeserializeHeader([]byte("data.csv<SEPARATOR>18\n2026-10-19,42\n7,8\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(18), hd.Size)
	assert.Equal(t, "2026-10-19,42\n7,8\n", string(leftover))
}

func TestDeserializeHeaderErrors(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	_, _, err := p.DeserializeHeader([]byte("photo.png1234"))
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, _, err = p.DeserializeHeader([]byte("photo.png<SEPARATOR>big\n"))
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, _, err = p.DeserializeHeader([]byte("photo.png<SEPARATOR>12x4\n"))
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, _, err = p.DeserializeHeader([]byte("photo.png<SEPARATOR>\n"))
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, _, err = p.DeserializeHeader([]byte("photo.png<SEPARATOR>12345678901234567890\n"))
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, _, err = p.DeserializeHeader([]byte("photo.png<SEPARATOR>1234"))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSerializeHeaderRejects(t *testing.T) {
	p := NewProto(DefaultMarker, DefaultSeparator)

	_, err := p.SerializeHeader(&TransferHeader{Name: "a<SEPARATOR>b", Size: 1})
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, err = p.SerializeHeader(&TransferHeader{Name: "", Size: 1})
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, err = p.SerializeHeader(&TransferHeader{Name: "a", Size: -1})
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestCustomSeparator(t *testing.T) {
	p := NewProto("M", "::")

	b, err := p.SerializeHeader(&TransferHeader{Name: "x.bin", Size: 9})
	require.NoError(t, err)
	assert.Equal(t, "x.bin::9\n", string(b))
	assert.Equal(t, len(b), p.HeaderEnd(append(b, "rest"...)))
	assert.Equal(t, -1, p.HeaderEnd([]byte("x.bin::9")))
	assert.Equal(t, -1, p.HeaderEnd([]byte("x.bin:")))
}

func TestBaseName(t *testing.T) {
	ok := map[string]string{
		"photo.png":             "photo.png",
		"../../etc/passwd":      "passwd",
		"/var/tmp/shot.png":     "shot.png",
		`..\..\windows\win.ini`: "win.ini",
		"dir/":                  "dir",
	}

	for in, want := range ok {
		got, err := BaseName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "..", ".", "/", "../.."} {
		_, err := BaseName(in)
		assert.ErrorIs(t, err, ErrMalformedHeader, in)
	}
}
