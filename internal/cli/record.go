// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ik5/audbind/formats/wav"
	"github.com/ik5/audbind/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recordChans = 2

func (a *app) recordCommand() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record <output.wav>",
		Short: "Record from the recording device into a 16-bit PCM WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: a.command(func(cmd *cobra.Command, args []string) error {
			n, err := a.record(cmd.Context(), args[0], duration)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d bytes to %s\n", n, args[0])
			return nil
		}),
	}
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to record, 0 until interrupted")
	return cmd
}

func (a *app) record(ctx context.Context, path string, duration time.Duration) (total int, err error) {
	rd, err := a.b.RecordDevice(a.settings.RecordDevice).Init()
	if err != nil {
		return 0, fmt.Errorf("initializing recording device %d: %w", a.settings.RecordDevice, err)
	}
	defer func() {
		err = errors.Join(err, rd.Free())
	}()

	freq := a.settings.Freq
	frameBytes := recordChans * utils.PCM16.Size()
	rb, err := rd.StartBuffered(freq, recordChans, 0, int(freq)*frameBytes)
	if err != nil {
		return 0, fmt.Errorf("starting recording: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Join(err, rb.Close())
	}
	w := wav.NewFileWriter(f, int(freq), recordChans, 16)

	copied := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(copied)

		n, err := copyPCM(w, rb, frameBytes)
		total = n
		return err
	})
	g.Go(func() error {
		var deadline <-chan time.Time
		if duration > 0 {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			deadline = timer.C
		}
		select {
		case <-gctx.Done():
		case <-deadline:
		case <-copied:
		}
		return rb.Close()
	})

	err = g.Wait()
	if dropped := rb.Dropped(); dropped > 0 {
		a.log.Warn("recording overran its buffer", zap.Int("dropped_bytes", dropped))
	}
	return total, errors.Join(err, w.Close(), f.Close())
}

// copyPCM writes 16-bit PCM read from r to w until r ends. Partial frames
// carry over to the next read.
func copyPCM(w *wav.FileWriter, r io.Reader, frameBytes int) (int, error) {
	buf := make([]byte, 16<<10)
	floats := make([]float32, len(buf)/utils.PCM16.Size())
	total, carry := 0, 0

	for {
		n, err := r.Read(buf[carry:])
		n += carry
		whole := n - n%frameBytes
		if whole > 0 {
			m := utils.DecodePCM(floats, buf[:whole], utils.PCM16)
			if werr := w.WriteSamples(floats[:m]); werr != nil {
				return total, werr
			}
			total += whole
		}
		carry = copy(buf, buf[whole:n])

		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
