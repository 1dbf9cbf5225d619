// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import (
	"fmt"
	"net/http"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/snabb/httpreaderat"
)

const remoteBufferSize = 1 << 20

// OpenURL resolves an archive served over HTTP without downloading it.
// Reads are translated into range requests; servers without range support
// fall back to spooling the whole body into a temporary backing store. A
// buffer in front of the transport absorbs the small scattered reads of
// the directory scan.
//
// The Archive owns the backing store and releases it on Close.
func OpenURL(url string, options ...Option) (*Archive, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("zipseek: %w", err)
	}

	store := httpreaderat.NewDefaultStore()
	htrdr, err := httpreaderat.New(nil, req, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("zipseek: open %s: %w", url, err)
	}

	buffered := bufra.NewBufReaderAt(htrdr, remoteBufferSize)

	a, err := newArchive(buffered, htrdr.Size(), store, options)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}
