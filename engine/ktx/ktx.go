// Package ktx reads and writes KTX 1.1 texture containers and uploads
// their payload into Vulkan images.
package ktx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

// fileIdentifier is the 12-byte magic at the start of every KTX 1.1 file.
var fileIdentifier = []byte{
	0xAB, 0x4B, 0x54, 0x58, 0x20, 0x31, 0x31, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A,
}

const (
	endiannessNative  = 0x04030201
	endiannessFlipped = 0x01020304

	headerFieldCount = 12
)

// OpenGL enums stored in KTX headers.
const (
	glUnsignedByte = 0x1401
	glRGBA         = 0x1908
	glRGBA8        = 0x8058
	glSRGB8Alpha8  = 0x8C43
)

// Texture is an in-memory KTX 1.1 container. Levels holds one blob per
// mip level; for array textures each blob packs all layers back to back.
type Texture struct {
	GLType               uint32
	GLTypeSize           uint32
	GLFormat             uint32
	GLInternalFormat     uint32
	GLBaseInternalFormat uint32

	PixelWidth  uint32
	PixelHeight uint32
	PixelDepth  uint32

	NumberOfArrayElements uint32
	NumberOfFaces         uint32
	NumberOfMipmapLevels  uint32

	// Key/value metadata carried by the container.
	KeyValueData map[string]string

	Levels [][]byte
}

// LayerCount reports the number of image layers the container holds,
// treating non-array textures as a single layer.
func (t *Texture) LayerCount() uint32 {
	if t.NumberOfArrayElements == 0 {
		return 1
	}
	return t.NumberOfArrayElements
}

// LevelCount reports the number of mip levels, treating the "generate
// mipmaps at load time" marker of zero as one stored level.
func (t *Texture) LevelCount() uint32 {
	if t.NumberOfMipmapLevels == 0 {
		return 1
	}
	return t.NumberOfMipmapLevels
}

// CreateFromNamedFile parses the KTX file at path.
func CreateFromNamedFile(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		core.LogError("unable to open texture file %s: %s", path, err)
		return nil, fmt.Errorf("%w: %s", ErrFileOpenFailed, path)
	}
	defer f.Close()

	texture, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return texture, nil
}

func read(r io.Reader) (*Texture, error) {
	identifier := make([]byte, len(fileIdentifier))
	if _, err := io.ReadFull(r, identifier); err != nil {
		return nil, ErrUnexpectedEndOfFile
	}
	if !bytes.Equal(identifier, fileIdentifier) {
		return nil, ErrUnknownFileFormat
	}

	var rawEndianness uint32
	if err := binary.Read(r, binary.LittleEndian, &rawEndianness); err != nil {
		return nil, ErrUnexpectedEndOfFile
	}

	var order binary.ByteOrder
	switch rawEndianness {
	case endiannessNative:
		order = binary.LittleEndian
	case endiannessFlipped:
		order = binary.BigEndian
	default:
		return nil, ErrUnknownFileFormat
	}

	var fields [headerFieldCount]uint32
	if err := binary.Read(r, order, &fields); err != nil {
		return nil, ErrUnexpectedEndOfFile
	}

	texture := &Texture{
		GLType:                fields[0],
		GLTypeSize:            fields[1],
		GLFormat:              fields[2],
		GLInternalFormat:      fields[3],
		GLBaseInternalFormat:  fields[4],
		PixelWidth:            fields[5],
		PixelHeight:           fields[6],
		PixelDepth:            fields[7],
		NumberOfArrayElements: fields[8],
		NumberOfFaces:         fields[9],
		NumberOfMipmapLevels:  fields[10],
	}
	bytesOfKeyValueData := fields[11]

	if texture.PixelWidth == 0 {
		return nil, ErrFileDataError
	}
	if texture.NumberOfFaces != 1 && texture.NumberOfFaces != 6 {
		return nil, ErrFileDataError
	}
	// Cube maps carry a per-face image size and padding scheme that the
	// loadtests never exercise.
	if texture.NumberOfFaces == 6 {
		return nil, ErrUnsupportedTextureType
	}

	if bytesOfKeyValueData > 0 {
		kvData := make([]byte, bytesOfKeyValueData)
		if _, err := io.ReadFull(r, kvData); err != nil {
			return nil, ErrUnexpectedEndOfFile
		}
		kv, err := parseKeyValueData(kvData, order)
		if err != nil {
			return nil, err
		}
		texture.KeyValueData = kv
	}

	levelCount := texture.LevelCount()
	texture.Levels = make([][]byte, 0, levelCount)
	for level := uint32(0); level < levelCount; level++ {
		var imageSize uint32
		if err := binary.Read(r, order, &imageSize); err != nil {
			return nil, ErrUnexpectedEndOfFile
		}
		data := make([]byte, imageSize)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, ErrUnexpectedEndOfFile
		}
		texture.Levels = append(texture.Levels, data)

		// Each level is padded to a 4 byte boundary.
		if pad := (4 - imageSize%4) % 4; pad > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
				return nil, ErrUnexpectedEndOfFile
			}
		}
	}

	return texture, nil
}

func parseKeyValueData(data []byte, order binary.ByteOrder) (map[string]string, error) {
	kv := make(map[string]string)
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, ErrFileDataError
		}
		pairSize := order.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < pairSize {
			return nil, ErrFileDataError
		}
		pair := data[:pairSize]
		data = data[pairSize:]

		sep := bytes.IndexByte(pair, 0)
		if sep < 0 {
			return nil, ErrFileDataError
		}
		value := pair[sep+1:]
		value = bytes.TrimSuffix(value, []byte{0})
		kv[string(pair[:sep])] = string(value)

		if pad := (4 - pairSize%4) % 4; pad > 0 {
			if uint32(len(data)) < pad {
				return nil, ErrFileDataError
			}
			data = data[pad:]
		}
	}
	return kv, nil
}
