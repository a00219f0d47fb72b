package ktx

import "errors"

var (
	// ErrFileOpenFailed means the named file could not be opened.
	ErrFileOpenFailed = errors.New("ktx: file open failed")
	// ErrUnknownFileFormat means the file does not carry the KTX identifier.
	ErrUnknownFileFormat = errors.New("ktx: unknown file format")
	// ErrUnexpectedEndOfFile means the file ended inside a header or level.
	ErrUnexpectedEndOfFile = errors.New("ktx: unexpected end of file")
	// ErrFileDataError means a header field holds an inconsistent value.
	ErrFileDataError = errors.New("ktx: file data error")
	// ErrUnsupportedTextureType means the texture cannot be expressed with
	// the supported upload paths.
	ErrUnsupportedTextureType = errors.New("ktx: unsupported texture type")
)
