package cluster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Snapshot files hold one fetched event window as a zstd-compressed,
// length-prefixed little-endian stream: a count header, then per quake the
// id, magnitude (presence flag + value), coordinates, depth, time and place.

const snapshotVersion = uint32(1)

// SaveSnapshot writes the quake slice to filename.
func SaveSnapshot(quakes []*Quake, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	enc, err := zstd.NewWriter(bufWriter,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}

	binary.Write(enc, binary.LittleEndian, snapshotVersion)
	binary.Write(enc, binary.LittleEndian, uint32(len(quakes)))

	for _, q := range quakes {
		if err := writeQuake(enc, q); err != nil {
			enc.Close()
			return err
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %v", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %v", err)
	}
	return nil
}

// LoadSnapshot reads a quake slice back from filename.
func LoadSnapshot(filename string) ([]*Quake, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(bufio.NewReaderSize(file, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	var version, count uint32
	if err := binary.Read(dec, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	if err := binary.Read(dec, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read count: %v", err)
	}

	quakes := make([]*Quake, 0, count)
	for i := uint32(0); i < count; i++ {
		q, err := readQuake(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to read quake %d: %v", i, err)
		}
		quakes = append(quakes, q)
	}
	return quakes, nil
}

func writeQuake(w io.Writer, q *Quake) error {
	if err := writeString(w, q.ID); err != nil {
		return err
	}

	hasMag := uint8(0)
	mag := 0.0
	if q.Magnitude != nil {
		hasMag = 1
		mag = *q.Magnitude
	}
	binary.Write(w, binary.LittleEndian, hasMag)
	binary.Write(w, binary.LittleEndian, mag)
	binary.Write(w, binary.LittleEndian, q.Latitude)
	binary.Write(w, binary.LittleEndian, q.Longitude)
	binary.Write(w, binary.LittleEndian, q.Depth)
	binary.Write(w, binary.LittleEndian, q.Time)

	return writeString(w, q.Place)
}

func readQuake(r io.Reader) (*Quake, error) {
	id, err := readString(r)
	if err != nil {
		return nil, err
	}

	var hasMag uint8
	var mag float64
	q := &Quake{ID: id, Latitude: math.NaN(), Longitude: math.NaN()}

	if err := binary.Read(r, binary.LittleEndian, &hasMag); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &mag); err != nil {
		return nil, err
	}
	if hasMag == 1 {
		q.Magnitude = &mag
	}
	if err := binary.Read(r, binary.LittleEndian, &q.Latitude); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &q.Longitude); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &q.Depth); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &q.Time); err != nil {
		return nil, err
	}

	place, err := readString(r)
	if err != nil {
		return nil, err
	}
	q.Place = place
	return q, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("failed to write string length: %v", err)
	}
	if _, err := w.Write([]byte(s)); err != nil {
		return fmt.Errorf("failed to write string: %v", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
