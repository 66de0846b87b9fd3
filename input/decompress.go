// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package input

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// decompress returns a reader for the content of r, which is compressed with
// the named content coding. The release function frees the resources held by
// the returned reader.
func decompress(r io.Reader, coding string) (_ io.Reader, release func() error, _ error) {
	switch strings.ToLower(strings.TrimSpace(coding)) {
	case "", "identity":
		return r, nil, nil

	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, zr.Close, nil

	case "zstd":
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, func() error { dec.Close(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported content coding %q", coding)
}
