// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"bytes"
	"io"
	"os"
	"unsafe"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/native"
)

type sample struct {
	handle   uint32
	dev      *device
	data     []float32
	freq     int
	chans    int
	flags    native.SampleFlags
	max      int
	channels []*channel
}

// freeSample frees s and its channels. Called with e.mu held.
func (e *Engine) freeSample(s *sample) events {
	var ev events
	for _, c := range append([]*channel(nil), s.channels...) {
		ev = append(ev, e.freeChannel(c)...)
	}
	s.channels = nil
	e.release(s.handle, s)
	return ev
}

// input describes where encoded data comes from.
type input struct {
	reader   func() io.ReadSeeker
	closer   io.Closer
	filename []byte
}

// openInput resolves a file or memory argument. A memory block is read in
// place for as long as the returned reader is used.
func openInput(mem bool, file unsafe.Pointer, offset, length uint64, wide bool) (*input, native.Code) {
	if file == nil {
		return nil, native.ErrorIllParam
	}

	if mem {
		if length == 0 {
			return nil, native.ErrorIllParam
		}
		view := unsafe.Slice((*byte)(file), int(length))
		return &input{reader: func() io.ReadSeeker { return bytes.NewReader(view) }}, native.ErrorOK
	}

	path := native.DecodeString(file, wide)
	f, err := os.Open(path)
	if err != nil {
		return nil, native.ErrorFileOpen
	}
	st, err := f.Stat()
	if err != nil || int64(offset) > st.Size() {
		_ = f.Close()
		return nil, native.ErrorFileOpen
	}

	size := st.Size() - int64(offset)
	if length > 0 && int64(length) < size {
		size = int64(length)
	}
	return &input{
		reader:   func() io.ReadSeeker { return io.NewSectionReader(f, int64(offset), size) },
		closer:   f,
		filename: native.EncodeString(path, false),
	}, native.ErrorOK
}

func (in *input) close() {
	if in.closer != nil {
		_ = in.closer.Close()
	}
}

// decode probes the input and optionally downmixes it.
func (e *Engine) decode(in *input, mono bool) (string, audio.Source, native.Code) {
	format, src, err := e.registry.Probe(in.reader())
	if err != nil {
		return "", nil, native.ErrorFileForm
	}
	if mono && src.Channels() > 1 {
		if src, err = audio.MapChannels(src, 1); err != nil {
			return "", nil, native.ErrorFormat
		}
	}
	return format, src, native.ErrorOK
}

// decodeAll decodes the whole input, resampled to freq when freq is not 0.
func (e *Engine) decodeAll(in *input, mono bool, freq int) ([]float32, int, int, native.Code) {
	_, src, code := e.decode(in, mono)
	if code != native.ErrorOK {
		return nil, 0, 0, code
	}
	defer src.Close()

	if freq > 0 && freq != src.SampleRate() {
		src = audio.NewResampler(src, freq)
	}

	data, err := audio.ReadAll(src)
	if err != nil {
		return nil, 0, 0, native.ErrorFileForm
	}
	return data, src.SampleRate(), src.Channels(), native.ErrorOK
}

func ctypeOf(format string) native.ChannelType {
	switch format {
	case FormatWAV:
		return native.CTypeStreamWAVPCM
	case FormatMP3:
		return native.CTypeStreamMP3
	case FormatVorbis:
		return native.CTypeStreamVorbis
	case FormatAIFF:
		return native.CTypeStreamAIFF
	case FormatFLAC:
		return native.CTypeStreamFLAC
	}
	return native.CTypeStream
}
