// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audbind/utils"
)

// Resampler converts src to another sample rate with cubic interpolation,
// preserving the channel count. A one-pole low-pass runs ahead of the
// interpolator when downsampling.
type Resampler struct {
	src      Source
	dstRate  float64
	ratio    float64 // source frames per output frame
	channels int

	// window of 4 frames around the interpolation point:
	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool
	done     bool

	// fractional position between frames[1] and frames[2]
	pos float64

	srcBuf []float32
	eof    bool

	filterState []float32
	useFilter   bool
	filterAlpha float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     float64(dstRate),
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return int(r.dstRate) }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame reads one source frame into dst and runs it through the low-pass
// filter. seed primes the filter state with the frame itself.
func (r *Resampler) readFrame(dst []float32, seed bool) (bool, error) {
	n, err := r.src.ReadSamples(r.srcBuf)
	got := n >= r.channels
	if got {
		copy(dst, r.srcBuf)
		if seed {
			copy(r.filterState, r.srcBuf)
		}
		if r.useFilter {
			for c := range r.channels {
				dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
				r.filterState[c] = dst[c]
			}
		}
	}

	if err == io.EOF {
		r.eof = true
		return got, nil
	}
	if err != nil {
		return got, fmt.Errorf("%w", err)
	}
	return got, nil
}

func (r *Resampler) prime() error {
	r.primed = true

	for i := range r.frames {
		if r.eof {
			break
		}
		ok, err := r.readFrame(r.frames[i], i == 0)
		if err != nil {
			return err
		}
		r.hasFrame[i] = ok
	}

	last := -1
	for i, ok := range r.hasFrame {
		if ok {
			last = i
		}
	}
	if last < 0 {
		return io.EOF
	}

	// pad a short source by repeating its last frame
	for i := last + 1; i < len(r.frames); i++ {
		copy(r.frames[i], r.frames[last])
		r.hasFrame[i] = true
	}

	return nil
}

// advance shifts the window by one frame.
func (r *Resampler) advance() error {
	if r.eof && !r.hasFrame[3] {
		return io.EOF
	}

	copy(r.frames[0], r.frames[1])
	copy(r.frames[1], r.frames[2])
	copy(r.frames[2], r.frames[3])
	r.hasFrame[0], r.hasFrame[1], r.hasFrame[2] = r.hasFrame[1], r.hasFrame[2], r.hasFrame[3]

	if r.eof {
		r.hasFrame[3] = false
		return nil
	}

	ok, err := r.readFrame(r.frames[3], false)
	r.hasFrame[3] = ok
	return err
}

// ReadSamples produces interleaved samples at the target rate. len(dst) must
// be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if r.done {
		return 0, io.EOF
	}
	if !r.primed {
		if err := r.prime(); err != nil {
			r.done = err == io.EOF
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				r.done = err == io.EOF
				return written * r.channels, err
			}
		}

		if !r.hasFrame[1] || !r.hasFrame[2] {
			r.done = true
			return written * r.channels, io.EOF
		}

		alpha := float32(r.pos)
		for c := range r.channels {
			y0 := r.frames[1][c]
			if r.hasFrame[0] {
				y0 = r.frames[0][c]
			}
			y3 := r.frames[2][c]
			if r.hasFrame[3] {
				y3 = r.frames[3][c]
			}

			dst[written*r.channels+c] = utils.CubicInterpolate(y0, r.frames[1][c], r.frames[2][c], y3, alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
