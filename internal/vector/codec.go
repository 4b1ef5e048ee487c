package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Binary layout: uint32 dimension, uint32 row count, then count rows of
// dimension float32 values, all little-endian. Rows appear in insertion
// order so document IDs survive a round trip.

// Encode writes the index contents to w in binary form.
func (x *FlatIndex) Encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(x.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(x.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, row := range x.vectors {
		if _, err := w.Write(float32SliceToBytes(row)); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// Decode reads an index previously written by Encode. Vectors were
// normalized before encoding, so no re-normalization happens on load.
func Decode(r io.Reader) (*FlatIndex, error) {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if n > 0 && dim == 0 {
		return nil, fmt.Errorf("invalid index header: %d vectors with dimension 0", n)
	}
	idx := &FlatIndex{dimensions: int(dim)}
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		idx.vectors = append(idx.vectors, bytesToFloat32Slice(buf))
	}
	return idx, nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
