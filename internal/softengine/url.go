// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unsafe"

	"github.com/ik5/audbind/native"
	"go.uber.org/zap"
)

const downloadChunk = 16 * 1024

// StreamCreateURL downloads the whole resource before returning, passing each
// chunk to the DownloadProc when download is set and ending with a nil chunk.
func (t *thread) StreamCreateURL(rawURL unsafe.Pointer, offset uint32, flags native.StreamFlags, download bool, user uintptr) uint32 {
	e := t.e

	e.mu.Lock()
	d, ok := t.dev()
	timeout := time.Duration(e.config[native.ConfigNetTimeout]) * time.Millisecond
	e.mu.Unlock()
	if !ok {
		return 0
	}
	if rawURL == nil {
		t.fail(native.ErrorIllParam)
		return 0
	}

	u, err := url.Parse(native.DecodeString(rawURL, flags&native.StreamUnicode != 0))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		t.fail(native.ErrorProtocol)
		return 0
	}

	data, code := e.fetch(u, offset, timeout, download, user)
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}

	in := &input{
		reader:   func() io.ReadSeeker { return bytes.NewReader(data) },
		filename: native.EncodeString(u.String(), false),
	}
	mono := flags&native.StreamSampleMono != 0
	format, src, code := e.decode(in, mono)
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}
	return t.addDecoded(d, in, mono, format, src, flags)
}

func (e *Engine) fetch(u *url.URL, offset uint32, timeout time.Duration, download bool, user uintptr) ([]byte, native.Code) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, native.ErrorFileOpen
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Debug("url stream request failed", zap.String("url", u.Redacted()), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, native.ErrorTimeout
		}
		return nil, native.ErrorNoNet
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.log.Debug("url stream rejected", zap.String("url", u.Redacted()), zap.Int("status", resp.StatusCode))
		return nil, native.ErrorFileOpen
	}

	var data []byte
	chunk := make([]byte, downloadChunk)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			data = append(data, chunk[:n]...)
			if download {
				e.downloaded(chunk[:n], user)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, native.ErrorTimeout
			}
			return nil, native.ErrorNoNet
		}
	}

	if download {
		e.downloaded(nil, user)
	}
	return data, native.ErrorOK
}

func (e *Engine) downloaded(buf []byte, user uintptr) {
	if d := e.dispatcher(); d != nil {
		d.DownloadProc(buf, user)
	}
}
