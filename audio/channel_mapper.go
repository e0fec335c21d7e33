// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMapper converts a Source to a different channel count. Mono is copied
// to every output channel; otherwise channels are matched by index and missing
// ones are silent.
type ChannelMapper struct {
	src      Source
	channels int
	tmp      []float32
}

// MapChannels returns src converted to channels. It returns src unchanged when
// the counts already match and a MonoMixer when downmixing to mono.
func MapChannels(src Source, channels int) (Source, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	switch {
	case src.Channels() == channels:
		return src, nil
	case channels == 1:
		return NewMonoMixer(src), nil
	}

	return &ChannelMapper{src: src, channels: channels}, nil
}

func (c *ChannelMapper) SampleRate() int { return c.src.SampleRate() }
func (c *ChannelMapper) Channels() int   { return c.channels }
func (c *ChannelMapper) BufSize() int    { return c.src.BufSize() }

func (c *ChannelMapper) Close() error {
	if err := c.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (c *ChannelMapper) ReadSamples(dst []float32) (int, error) {
	if len(dst)%c.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	in := c.src.Channels()
	need := len(dst) / c.channels * in
	if cap(c.tmp) < need {
		c.tmp = make([]float32, need)
	}
	c.tmp = c.tmp[:need]

	n, err := c.src.ReadSamples(c.tmp)
	frames := n / in

	for f := range frames {
		for ch := range c.channels {
			var v float32
			switch {
			case in == 1:
				v = c.tmp[f]
			case ch < in:
				v = c.tmp[f*in+ch]
			}
			dst[f*c.channels+ch] = v
		}
	}

	return frames * c.channels, err
}
