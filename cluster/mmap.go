package cluster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"
)

// MMapWriter handles writing to memory-mapped files
type MMapWriter struct {
	data   mmap.MMap
	offset int
}

func NewMMapWriter(data mmap.MMap) *MMapWriter {
	return &MMapWriter{data: data}
}

func (w *MMapWriter) WriteUint8(v uint8) {
	w.data[w.offset] = v
	w.offset++
}

func (w *MMapWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.data[w.offset:], v)
	w.offset += 4
}

func (w *MMapWriter) WriteInt64(v int64) {
	binary.LittleEndian.PutUint64(w.data[w.offset:], uint64(v))
	w.offset += 8
}

func (w *MMapWriter) WriteFloat64(v float64) {
	binary.LittleEndian.PutUint64(w.data[w.offset:], math.Float64bits(v))
	w.offset += 8
}

func (w *MMapWriter) WriteBytes(b []byte) {
	copy(w.data[w.offset:], b)
	w.offset += len(b)
}

func (w *MMapWriter) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	w.WriteBytes([]byte(s))
}

// MMapReader handles reading from memory-mapped files
type MMapReader struct {
	data   mmap.MMap
	offset int
}

func NewMMapReader(data mmap.MMap) *MMapReader {
	return &MMapReader{data: data}
}

func (r *MMapReader) ReadUint8() uint8 {
	v := r.data[r.offset]
	r.offset++
	return v
}

func (r *MMapReader) ReadUint32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

func (r *MMapReader) ReadInt64() int64 {
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return int64(v)
}

func (r *MMapReader) ReadFloat64() float64 {
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return math.Float64frombits(v)
}

func (r *MMapReader) ReadBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, r.data[r.offset:r.offset+n])
	r.offset += n
	return b
}

func (r *MMapReader) ReadString() string {
	n := r.ReadUint32()
	return string(r.ReadBytes(int(n)))
}

// snapshotSize calculates the total mapped size needed for the quake slice.
func snapshotSize(quakes []*Quake) int64 {
	size := int64(8) // version + count

	for _, q := range quakes {
		size += 4 + int64(len(q.ID))
		size += 1 + 8 // magnitude flag + value
		size += 8 * 3 // lat, lon, depth
		size += 8     // time
		size += 4 + int64(len(q.Place))
	}
	return size
}

// SaveSnapshotMMap writes the snapshot through a memory-mapped file. Same
// layout as SaveSnapshot, minus the compression.
func SaveSnapshotMMap(quakes []*Quake, filename string) error {
	size := snapshotSize(quakes)

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %v", err)
	}

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	writer := NewMMapWriter(mmapData)

	writer.WriteUint32(snapshotVersion)
	writer.WriteUint32(uint32(len(quakes)))

	for _, q := range quakes {
		writer.WriteString(q.ID)
		if q.Magnitude != nil {
			writer.WriteUint8(1)
			writer.WriteFloat64(*q.Magnitude)
		} else {
			writer.WriteUint8(0)
			writer.WriteFloat64(0)
		}
		writer.WriteFloat64(q.Latitude)
		writer.WriteFloat64(q.Longitude)
		writer.WriteFloat64(q.Depth)
		writer.WriteInt64(q.Time)
		writer.WriteString(q.Place)
	}

	return mmapData.Flush()
}

// LoadSnapshotMMap reads a snapshot written by SaveSnapshotMMap.
func LoadSnapshotMMap(filename string) ([]*Quake, error) {
	file, err := os.OpenFile(filename, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	reader := NewMMapReader(mmapData)

	version := reader.ReadUint32()
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	count := reader.ReadUint32()

	quakes := make([]*Quake, count)
	for i := range quakes {
		q := &Quake{}
		q.ID = reader.ReadString()

		hasMag := reader.ReadUint8()
		mag := reader.ReadFloat64()
		if hasMag == 1 {
			q.Magnitude = &mag
		}
		q.Latitude = reader.ReadFloat64()
		q.Longitude = reader.ReadFloat64()
		q.Depth = reader.ReadFloat64()
		q.Time = reader.ReadInt64()
		q.Place = reader.ReadString()

		quakes[i] = q
	}

	return quakes, nil
}

// SaveSnapshotCompressedMMap writes through a temporary mmap file and then
// compresses it with zstd.
func SaveSnapshotCompressedMMap(quakes []*Quake, filename string) error {
	tempFile := filename + ".tmp"
	if err := SaveSnapshotMMap(quakes, tempFile); err != nil {
		return fmt.Errorf("failed to save mmap: %v", err)
	}
	defer os.Remove(tempFile)

	src, err := os.Open(tempFile)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %v", err)
	}
	defer src.Close()

	dst, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create compressed file: %v", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}

	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress data: %v", err)
	}

	return enc.Close()
}

// LoadSnapshotCompressedMMap decompresses to a temporary file and loads it
// through mmap.
func LoadSnapshotCompressedMMap(filename string) ([]*Quake, error) {
	tempFile := filename + ".tmp"
	dst, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tempFile)
	defer dst.Close()

	src, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed file: %v", err)
	}
	defer src.Close()

	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	if _, err := io.Copy(dst, dec); err != nil {
		return nil, fmt.Errorf("failed to decompress data: %v", err)
	}

	if err := dst.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync temp file: %v", err)
	}

	return LoadSnapshotMMap(tempFile)
}
