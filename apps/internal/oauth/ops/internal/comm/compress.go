// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package comm

import (
	"compress/gzip"
	"io"
)

// gzipDecompress wraps r in a gzip reader. The returned reader must be closed.
func gzipDecompress(r io.Reader) (io.ReadCloser, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return gzipReader, nil
}
