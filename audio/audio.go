// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Source is a pull based stream of interleaved float32 PCM.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Sniffer is implemented by decoders that can recognize their format from the
// first bytes of a file.
type Sniffer interface {
	Sniff(header []byte) bool
}

// SniffLen is the number of leading bytes handed to Sniffer.Sniff.
const SniffLen = 64

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	formats := make([]string, 0, len(r.codecs))
	for f := range r.codecs {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}

// Probe detects the format of rs by sniffing its header and decodes it with the
// matching decoder. Decoders that do not implement Sniffer are skipped.
func (r *Registry) Probe(rs io.ReadSeeker) (string, Source, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", nil, fmt.Errorf("probe: %w", err)
	}

	header := make([]byte, SniffLen)
	n, err := io.ReadFull(rs, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", nil, ErrUnknownFormat
		}
		return "", nil, fmt.Errorf("probe: %w", err)
	}
	header = header[:n]

	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return "", nil, fmt.Errorf("probe: %w", err)
	}

	for _, format := range r.Formats() {
		d, _ := r.Get(format)
		s, ok := d.(Sniffer)
		if !ok || !s.Sniff(header) {
			continue
		}

		src, err := d.Decode(rs)
		if err != nil {
			return format, nil, fmt.Errorf("decoding %s: %w", format, err)
		}
		return format, src, nil
	}

	return "", nil, ErrUnknownFormat
}

// ReadAll drains src into memory.
func ReadAll(src Source) ([]float32, error) {
	bufSize := src.BufSize()
	if bufSize <= 0 {
		bufSize = 4096
	}
	// keep reads frame aligned
	bufSize -= bufSize % src.Channels()

	var out []float32
	buf := make([]float32, bufSize)

	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)

		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("%w", err)
		}
		if n == 0 {
			// a source that neither produces data nor ends would spin forever
			return out, io.ErrNoProgress
		}
	}
}
