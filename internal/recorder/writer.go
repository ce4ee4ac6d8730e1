package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"backtest/internal/schema"
)

var ErrClosed = errors.New("wal writer closed")

// Writer appends events to numbered WAL segments. Sequence numbers are
// assigned by the writer, starting at 1.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	cfg       Config
	seg       *segment
	segID     uint64
	seq       uint64
	headerBuf [recordHeaderSize]byte
	closed    bool
}

type segment struct {
	file *os.File
	buf  *bufio.Writer
	size int64
}

// NewWriter creates a WAL writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{cfg: cfg}, nil
}

// Append writes one event and returns its sequence number. header.Seq is
// overwritten; a zero header.Version becomes schema.SchemaVersion.
func (w *Writer) Append(header schema.EventHeader, payload []byte) (uint64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if uint64(len(payload)) > maxPayloadLen {
		return 0, ErrPayloadTooLarge
	}
	if header.Version == 0 {
		header.Version = schema.SchemaVersion
	}
	header.Seq = w.seq + 1

	size := int64(recordHeaderSize + len(payload) + recordChecksumSize)
	if w.seg == nil || (w.seg.size > 0 && w.seg.size+size > w.cfg.SegmentMaxBytes) {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	encodeHeader(w.headerBuf[:], header, len(payload))
	var sum [recordChecksumSize]byte
	binary.LittleEndian.PutUint32(sum[:], checksum(w.headerBuf[:], payload))

	for _, part := range [][]byte{w.headerBuf[:], payload, sum[:]} {
		if _, err := w.seg.buf.Write(part); err != nil {
			return 0, err
		}
	}

	w.seg.size += size
	w.seq = header.Seq
	return header.Seq, nil
}

// LastSeq returns the sequence number of the last appended event.
func (w *Writer) LastSeq() uint64 {
	return w.seq
}

// Flush pushes buffered records to the current segment file.
func (w *Writer) Flush() error {
	if w.seg == nil {
		return nil
	}
	return w.seg.buf.Flush()
}

// Close flushes and syncs the current segment.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.closeSegment()
	w.seg = nil
	return err
}

func (w *Writer) rotate() error {
	if err := w.closeSegment(); err != nil {
		return err
	}
	for {
		w.segID++
		name := fmt.Sprintf("%s-%06d.wal", w.cfg.FilePrefix, w.segID)
		file, err := os.OpenFile(filepath.Join(w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return err
		}
		w.seg = &segment{
			file: file,
			buf:  bufio.NewWriterSize(file, w.cfg.BufferSize),
		}
		return nil
	}
}

func (w *Writer) closeSegment() error {
	if w.seg == nil {
		return nil
	}
	if err := w.seg.buf.Flush(); err != nil {
		_ = w.seg.file.Close()
		return err
	}
	if err := w.seg.file.Sync(); err != nil {
		_ = w.seg.file.Close()
		return err
	}
	return w.seg.file.Close()
}
