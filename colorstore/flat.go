package colorstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFlat writes colors as consecutive little endian uint32 words in tile
// index order, the layout raster tools read directly.
func WriteFlat(w io.Writer, colors []Color) error {
	bw := bufio.NewWriter(w)
	var buf [4]byte
	for _, c := range colors {
		binary.LittleEndian.PutUint32(buf[:], uint32(c))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFlat reads an array written by WriteFlat.
func ReadFlat(r io.Reader) ([]Color, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: flat array of %d bytes", ErrCorrupt, len(data))
	}
	out := make([]Color, len(data)/4)
	for i := range out {
		out[i] = Color(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}
