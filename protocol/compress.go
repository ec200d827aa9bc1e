package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/spamd/spamdclient-go/errors"
)

// compressBody deflates a request body for the Compress: zlib header
func compressBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, errors.NewEncodeError(fmt.Sprintf("zlib compression failed: %v", err))
	}
	if err := w.Close(); err != nil {
		return nil, errors.NewEncodeError(fmt.Sprintf("zlib compression failed: %v", err))
	}
	return buf.Bytes(), nil
}

// decompressBody inflates a response body announced with Compress: zlib
func decompressBody(body []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewMalformedHeaderError(fmt.Sprintf("body is not zlib data: %v", err))
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewMalformedHeaderError(fmt.Sprintf("zlib decompression failed: %v", err))
	}
	return out, nil
}
