package ktx

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

// NewRGBA8Texture builds an uncompressed RGBA8 container from raw pixel
// data, one blob per mip level with layers packed back to back.
func NewRGBA8Texture(width, height, arrayElements uint32, levels [][]byte) *Texture {
	numberOfMipmapLevels := uint32(len(levels))
	return &Texture{
		GLType:                glUnsignedByte,
		GLTypeSize:            1,
		GLFormat:              glRGBA,
		GLInternalFormat:      glRGBA8,
		GLBaseInternalFormat:  glRGBA,
		PixelWidth:            width,
		PixelHeight:           height,
		PixelDepth:            0,
		NumberOfArrayElements: arrayElements,
		NumberOfFaces:         1,
		NumberOfMipmapLevels:  numberOfMipmapLevels,
		Levels:                levels,
	}
}

// WriteNamedFile serializes the texture as a little-endian KTX 1.1 file.
func (t *Texture) WriteNamedFile(path string) error {
	if len(t.Levels) == 0 {
		return ErrFileDataError
	}

	f, err := os.Create(path)
	if err != nil {
		core.LogError("unable to create texture file %s: %s", path, err)
		return fmt.Errorf("%w: %s", ErrFileOpenFailed, path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := t.write(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func (t *Texture) write(w *bufio.Writer) error {
	if _, err := w.Write(fileIdentifier); err != nil {
		return err
	}

	kvData := encodeKeyValueData(t.KeyValueData)

	fields := [headerFieldCount + 1]uint32{
		endiannessNative,
		t.GLType,
		t.GLTypeSize,
		t.GLFormat,
		t.GLInternalFormat,
		t.GLBaseInternalFormat,
		t.PixelWidth,
		t.PixelHeight,
		t.PixelDepth,
		t.NumberOfArrayElements,
		t.NumberOfFaces,
		t.NumberOfMipmapLevels,
		uint32(len(kvData)),
	}
	if err := binary.Write(w, binary.LittleEndian, fields); err != nil {
		return err
	}
	if _, err := w.Write(kvData); err != nil {
		return err
	}

	for _, level := range t.Levels {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(level))); err != nil {
			return err
		}
		if _, err := w.Write(level); err != nil {
			return err
		}
		if pad := (4 - len(level)%4) % 4; pad > 0 {
			if _, err := w.Write(make([]byte, pad)); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeKeyValueData(kv map[string]string) []byte {
	if len(kv) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kv))
	for key := range kv {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []byte
	var sizeBuf [4]byte
	for _, key := range keys {
		value := kv[key]
		pairSize := uint32(len(key) + 1 + len(value) + 1)
		binary.LittleEndian.PutUint32(sizeBuf[:], pairSize)
		out = append(out, sizeBuf[:]...)
		out = append(out, key...)
		out = append(out, 0)
		out = append(out, value...)
		out = append(out, 0)
		if pad := (4 - pairSize%4) % 4; pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
	}
	return out
}
