package main

import (
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// openInput resolves path ('-' meaning stdin) to a decoded byte stream,
// transparently unwrapping xz compression when requested. The returned
// closer releases the underlying file descriptor, if any.
func openInput(path string, isXZ bool) (io.Reader, func() error, error) {
	var f *os.File
	var err error
	if path == "-" {
		f = os.Stdin
	} else {
		f, err = os.Open(path)
		if err != nil {
			return nil, nil, err
		}
	}

	closeFn := func() error {
		if f == os.Stdin {
			return nil
		}
		return f.Close()
	}

	if !isXZ {
		return f, closeFn, nil
	}

	xr, err := xz.NewReader(f)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return xr, closeFn, nil
}
