package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// 火山引擎 SAUC 二进制帧：4 字节头 + 可选序号 + payload 长度 + payload
const protocolVersion = 0b0001

// FrameType 帧类型
type FrameType uint8

const (
	FrameClientRequest  FrameType = 0b0001
	FrameAudioOnly      FrameType = 0b0010
	FrameServerResponse FrameType = 0b1001
	FrameServerError    FrameType = 0b1111
)

// FrameFlags 帧标志，低两位描述序号
type FrameFlags uint8

const (
	FlagNone        FrameFlags = 0b0000
	FlagSequence    FrameFlags = 0b0001
	FlagLastNoSeq   FrameFlags = 0b0010
	FlagLastWithSeq FrameFlags = 0b0011
)

const (
	serialNone uint8 = 0b0000
	serialJSON uint8 = 0b0001

	compressNone uint8 = 0b0000
	compressGzip uint8 = 0b0001
)

var errShortHeader = errors.New("frame header too short")

// Frame 一个协议帧
type Frame struct {
	Type       FrameType
	Flags      FrameFlags
	Serial     uint8
	Compress   uint8
	HeaderSize uint8 // 以 4 字节为单位
	Sequence   int32
	ErrorCode  uint32
	Payload    []byte
}

func (f *Frame) hasSequence() bool {
	return f.Flags&0b0011 == FlagSequence || f.Flags&0b0011 == FlagLastWithSeq
}

// Last 是否为最后一帧
func (f *Frame) Last() bool {
	switch f.Flags & 0b0011 {
	case FlagLastNoSeq, FlagLastWithSeq:
		return true
	}
	return f.Sequence < 0
}

// Encode 序列化为二进制
func (f *Frame) Encode() []byte {
	var buf bytes.Buffer
	headerSize := f.HeaderSize
	if headerSize == 0 {
		headerSize = 1
	}
	buf.WriteByte(protocolVersion<<4 | headerSize)
	buf.WriteByte(uint8(f.Type)<<4 | uint8(f.Flags))
	buf.WriteByte(f.Serial<<4 | f.Compress)
	buf.WriteByte(0)
	for i := 1; i < int(headerSize); i++ {
		buf.Write([]byte{0, 0, 0, 0})
	}

	word := make([]byte, 4)
	if f.hasSequence() {
		binary.BigEndian.PutUint32(word, uint32(f.Sequence))
		buf.Write(word)
	}
	if f.Type == FrameServerError {
		binary.BigEndian.PutUint32(word, f.ErrorCode)
		buf.Write(word)
	}
	binary.BigEndian.PutUint32(word, uint32(len(f.Payload)))
	buf.Write(word)
	buf.Write(f.Payload)
	return buf.Bytes()
}

// DecodeFrame 解析一个完整帧
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < 4 {
		return nil, errShortHeader
	}
	if v := data[0] >> 4; v != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", v)
	}

	f := &Frame{
		HeaderSize: data[0] & 0x0F,
		Type:       FrameType(data[1] >> 4),
		Flags:      FrameFlags(data[1] & 0x0F),
		Serial:     data[2] >> 4,
		Compress:   data[2] & 0x0F,
	}
	if f.HeaderSize == 0 {
		return nil, errShortHeader
	}

	if int(f.HeaderSize)*4 > len(data) {
		return nil, errShortHeader
	}
	r := bytes.NewReader(data[int(f.HeaderSize)*4:])

	if f.hasSequence() {
		if err := binary.Read(r, binary.BigEndian, &f.Sequence); err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
	}
	if f.Type == FrameServerError {
		if err := binary.Read(r, binary.BigEndian, &f.ErrorCode); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("read payload (%d bytes): %w", size, err)
		}
	}
	return f, nil
}

// Body 返回解压后的 payload
func (f *Frame) Body() ([]byte, error) {
	switch f.Compress {
	case compressNone:
		return f.Payload, nil
	case compressGzip:
		return gunzip(f.Payload)
	default:
		return nil, fmt.Errorf("unsupported compression: %d", f.Compress)
	}
}

func newClientRequest(body []byte) (*Frame, error) {
	zipped, err := gzipBytes(body)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Type:     FrameClientRequest,
		Flags:    FlagNone,
		Serial:   serialJSON,
		Compress: compressGzip,
		Payload:  zipped,
	}, nil
}

// newAudioFrame 音频包；最后一包使用负序号
func newAudioFrame(chunk []byte, seq int32, last bool) (*Frame, error) {
	zipped, err := gzipBytes(chunk)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		Type:     FrameAudioOnly,
		Flags:    FlagSequence,
		Serial:   serialNone,
		Compress: compressGzip,
		Sequence: seq,
		Payload:  zipped,
	}
	if last {
		f.Flags = FlagLastWithSeq
		f.Sequence = -seq
	}
	return f, nil
}
