// Package broadcast implements the TCP broadcast sink from spec §4.5:
// a server that streams converted audio buffers to any number of
// connected clients over a small framed protocol, plus a matching
// client for consuming that stream.
package broadcast

import (
	"encoding/binary"

	"github.com/sooth/audio-capture-library/audiocore"
)

var protocolMagic = [5]byte{'A', 'U', 'D', 'I', 'O'}

const (
	protocolVersion = 1

	packetTypeAudio    = 0x01
	packetTypeFormat   = 0x02
	packetTypeKeepAlive = 0x00
	packetTypeEnd      = 0xFF
)

const (
	formatFlagFloat       = 0x01
	formatFlagInterleaved = 0x02
)

// encodeFormatHeader builds the one-time format header: magic, version,
// packet type, then sample rate/channels/bit depth/flags.
func encodeFormatHeader(format audiocore.AudioFormat) []byte {
	buf := make([]byte, 0, len(protocolMagic)+2+12)
	buf = append(buf, protocolMagic[:]...)
	buf = append(buf, protocolVersion, packetTypeFormat)

	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(format.SampleRate))
	buf = append(buf, tmp[:4]...)

	var tmp2 [2]byte
	binary.LittleEndian.PutUint16(tmp2[:], uint16(format.ChannelCount))
	buf = append(buf, tmp2[:]...)
	binary.LittleEndian.PutUint16(tmp2[:], uint16(format.BitDepth))
	buf = append(buf, tmp2[:]...)

	var flags uint32
	if format.IsFloat {
		flags |= formatFlagFloat
	}
	if format.IsInterleaved {
		flags |= formatFlagInterleaved
	}
	binary.LittleEndian.PutUint32(tmp[:], flags)
	buf = append(buf, tmp[:]...)
	return buf
}

// encodeAudioPacket builds one audio data packet: type, timestamp
// (microseconds since server start), frame count, then the raw
// interleaved sample bytes.
func encodeAudioPacket(timestampUs uint64, frameCount int, data []byte) []byte {
	buf := make([]byte, 0, 1+8+4+len(data))
	buf = append(buf, packetTypeAudio)

	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], timestampUs)
	buf = append(buf, tmp8[:]...)

	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(frameCount))
	buf = append(buf, tmp4[:]...)

	return append(buf, data...)
}

// encodeEndPacket builds the end-of-stream packet sent when the sink
// finishes or the server stops.
func encodeEndPacket(timestampUs uint64) []byte {
	buf := make([]byte, 0, 9)
	buf = append(buf, packetTypeEnd)
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], timestampUs)
	return append(buf, tmp8[:]...)
}

// decodeFormatHeader parses the bytes following the packet-type byte of
// a format packet (12 bytes: rate u32, channels u16, bit depth u16,
// flags u32).
func decodeFormatHeader(data []byte) audiocore.AudioFormat {
	sampleRate := binary.LittleEndian.Uint32(data[0:4])
	channels := binary.LittleEndian.Uint16(data[4:6])
	bitDepth := binary.LittleEndian.Uint16(data[6:8])
	flags := binary.LittleEndian.Uint32(data[8:12])
	return audiocore.AudioFormat{
		SampleRate:    float64(sampleRate),
		ChannelCount:  int(channels),
		BitDepth:      int(bitDepth),
		IsFloat:       flags&formatFlagFloat != 0,
		IsInterleaved: flags&formatFlagInterleaved != 0,
	}
}
