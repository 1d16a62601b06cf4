package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore"
)

// S4 — the wire format round-trips: a format header encoded by the
// server decodes back to the identical AudioFormat on the client side.
func TestFormatHeaderRoundTrip(t *testing.T) {
	format := audiocore.AudioFormat{
		SampleRate:    48000,
		ChannelCount:  2,
		BitDepth:      16,
		IsFloat:       false,
		IsInterleaved: true,
	}
	header := encodeFormatHeader(format)

	require.Equal(t, len(protocolMagic)+2+12, len(header))
	assert.Equal(t, []byte("AUDIO"), header[:5])
	assert.Equal(t, byte(protocolVersion), header[5])
	assert.Equal(t, byte(packetTypeFormat), header[6])

	decoded := decodeFormatHeader(header[7:])
	assert.Equal(t, format, decoded)
}

func TestAudioPacketEncoding(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	packet := encodeAudioPacket(12345, 1, data)

	require.Equal(t, 1+8+4+len(data), len(packet))
	assert.Equal(t, byte(packetTypeAudio), packet[0])
	assert.Equal(t, uint64(12345), le64(packet[1:9]))
	assert.Equal(t, uint32(1), le32(packet[9:13]))
	assert.Equal(t, data, packet[13:])
}

func TestEndPacketEncoding(t *testing.T) {
	packet := encodeEndPacket(999)
	require.Equal(t, 9, len(packet))
	assert.Equal(t, byte(packetTypeEnd), packet[0])
	assert.Equal(t, uint64(999), le64(packet[1:]))
}
