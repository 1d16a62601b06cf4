package broadcast

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/internal/errors"
)

// Client connects to a Server and yields the buffers it broadcasts.
// Timestamps on received buffers are server-relative (microseconds
// since the server started), not wall-clock — spec's pinned resolution
// of the protocol's Open Question on client-side timestamp meaning.
type Client struct {
	conn   net.Conn
	r      *bufio.Reader
	format audiocore.AudioFormat
}

// Dial connects to addr and reads the server's format header.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryNetwork).
			Context("operation", "dial").
			Context("addr", addr).
			Build()
	}
	c := &Client{conn: conn, r: bufio.NewReader(conn)}
	if err := c.readFormatHeader(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) readFormatHeader() error {
	magic := make([]byte, len(protocolMagic))
	if _, err := io.ReadFull(c.r, magic); err != nil {
		return protocolErr(err, "read_magic")
	}
	for i := range magic {
		if magic[i] != protocolMagic[i] {
			return errors.New(nil).
				Component(audiocore.ComponentAudioCore).
				Category(errors.CategoryProtocol).
				Context("error", "invalid protocol magic").
				Build()
		}
	}

	versionAndType := make([]byte, 2)
	if _, err := io.ReadFull(c.r, versionAndType); err != nil {
		return protocolErr(err, "read_header")
	}
	if versionAndType[0] != protocolVersion {
		return errors.New(nil).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryProtocol).
			Context("version", versionAndType[0]).
			Context("error", "unsupported protocol version").
			Build()
	}
	if versionAndType[1] != packetTypeFormat {
		return errors.New(nil).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryProtocol).
			Context("error", "expected format packet").
			Build()
	}

	data := make([]byte, 12)
	if _, err := io.ReadFull(c.r, data); err != nil {
		return protocolErr(err, "read_format_body")
	}
	c.format = decodeFormatHeader(data)
	return nil
}

// Format returns the format advertised by the server.
func (c *Client) Format() audiocore.AudioFormat { return c.format }

// ReceivedBuffer is one decoded packet from the server.
type ReceivedBuffer struct {
	Buffer         audiocore.AudioBuffer
	ServerRelative time.Duration
	EndOfStream    bool
}

// Receive blocks for the next packet, skipping keepalives transparently
// and reporting io.EOF once the server sends its end-of-stream packet or
// closes the connection.
func (c *Client) Receive() (ReceivedBuffer, error) {
	for {
		typeByte, err := c.r.ReadByte()
		if err != nil {
			return ReceivedBuffer{}, protocolErr(err, "read_packet_type")
		}

		switch typeByte {
		case packetTypeKeepAlive:
			continue
		case packetTypeEnd:
			tsBytes := make([]byte, 8)
			_, _ = io.ReadFull(c.r, tsBytes)
			return ReceivedBuffer{EndOfStream: true}, io.EOF
		case packetTypeAudio:
			return c.readAudioPacket()
		default:
			return ReceivedBuffer{}, errors.Newf("unknown packet type 0x%02x", typeByte).
				Component(audiocore.ComponentAudioCore).
				Category(errors.CategoryProtocol).
				Build()
		}
	}
}

func (c *Client) readAudioPacket() (ReceivedBuffer, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(c.r, header); err != nil {
		return ReceivedBuffer{}, protocolErr(err, "read_audio_header")
	}
	timestampUs := le64(header[0:8])
	frameCount := int(le32(header[8:12]))

	bytesPerSample := c.format.BitDepth / 8
	dataSize := frameCount * c.format.ChannelCount * bytesPerSample
	raw := make([]byte, dataSize)
	if _, err := io.ReadFull(c.r, raw); err != nil {
		return ReceivedBuffer{}, protocolErr(err, "read_audio_data")
	}

	buf := audiocore.AudioBuffer{
		Raw:        raw,
		Format:     c.format,
		FrameCount: frameCount,
	}
	return ReceivedBuffer{
		Buffer:         buf,
		ServerRelative: time.Duration(timestampUs) * time.Microsecond,
	}, nil
}

// Close disconnects from the server.
func (c *Client) Close() error { return c.conn.Close() }

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func protocolErr(err error, op string) error {
	return errors.New(err).
		Component(audiocore.ComponentAudioCore).
		Category(errors.CategoryNetwork).
		Context("operation", op).
		Build()
}
