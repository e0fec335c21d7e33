// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ik5/audbind"
	"github.com/ik5/audbind/native"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const decodeChunk = 64 << 10

func (a *app) decodeCommand() *cobra.Command {
	var mono bool

	cmd := &cobra.Command{
		Use:   "decode <input> <output.wav>",
		Short: "Decode a file and write it out as 16-bit PCM WAV",
		Args:  cobra.ExactArgs(2),
		RunE: a.command(func(cmd *cobra.Command, args []string) error {
			n, err := a.decode(cmd.Context(), args[0], args[1], mono)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "decoded %d bytes to %s\n", n, args[1])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&mono, "mono", false, "downmix to mono")
	return cmd
}

// decode runs the input through a decoding channel on the no sound device
// with a PCM encoder attached.
func (a *app) decode(ctx context.Context, in, out string, mono bool) (total int, err error) {
	dev, err := a.b.Device(0).Init(a.settings.Freq, 0)
	if err != nil {
		return 0, fmt.Errorf("initializing no sound device: %w", err)
	}
	defer func() {
		err = errors.Join(err, dev.Free())
	}()

	s, err := dev.StreamFromFile(in, 0, 0, native.StreamDecode)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", in, err)
	}

	flags := native.EncodePCM
	if mono {
		flags |= native.EncodeMono
	}
	enc, err := s.StartEncoder(out, flags, nil)
	if err != nil {
		return 0, errors.Join(fmt.Errorf("starting encoder: %w", err), s.Free())
	}
	enc.SetNotify(func(_ context.Context, status native.EncodeNotify) {
		a.log.Debug("encoder status", zap.Uint32("encoder", enc.Handle()), zap.Uint32("status", uint32(status)))
	})

	buf := make([]byte, decodeChunk)
	for ctx.Err() == nil {
		n, err := s.GetData(buf)
		total += n
		if errors.Is(err, audbind.ErrEnded) {
			break
		}
		if err != nil {
			return total, errors.Join(err, s.Free())
		}
	}

	// freeing the stream finishes the encoder's file
	return total, errors.Join(ctx.Err(), s.Free())
}
