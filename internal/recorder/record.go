package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"backtest/internal/schema"
)

// Record layout, little endian:
//
//	magic[4] version[2] type[2] schema[2] flags[2] payloadLen[4] seq[8] instant[8]
//	payload[payloadLen]
//	crc32c(header || payload)[4]
const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 32
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'B', 'T', 'E', 'V'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic         = errors.New("wal invalid magic")
	ErrUnsupportedRecordVer = errors.New("wal unsupported record version")
	ErrChecksumMismatch     = errors.New("wal checksum mismatch")
	ErrPayloadTooLarge      = errors.New("wal payload too large")
)

const maxPayloadLen = uint64(^uint32(0))

func encodeHeader(dst []byte, header schema.EventHeader, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(header.Type))
	binary.LittleEndian.PutUint16(dst[8:10], header.Version)
	binary.LittleEndian.PutUint16(dst[10:12], header.Flags)
	binary.LittleEndian.PutUint32(dst[12:16], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[16:24], header.Seq)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(header.Instant))
}

func decodeHeader(src []byte) (schema.EventHeader, uint32, error) {
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return schema.EventHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return schema.EventHeader{}, 0, ErrUnsupportedRecordVer
	}
	h := schema.EventHeader{
		Type:    schema.EventType(binary.LittleEndian.Uint16(src[6:8])),
		Version: binary.LittleEndian.Uint16(src[8:10]),
		Flags:   binary.LittleEndian.Uint16(src[10:12]),
		Seq:     binary.LittleEndian.Uint64(src[16:24]),
		Instant: int64(binary.LittleEndian.Uint64(src[24:32])),
	}
	return h, binary.LittleEndian.Uint32(src[12:16]), nil
}

func checksum(header, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}
