// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ik5/audbind"
	"github.com/ik5/audbind/native"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) playCommand() *cobra.Command {
	var (
		volume float32
		loop   bool
	)

	cmd := &cobra.Command{
		Use:   "play <file|url>",
		Short: "Play a file or URL until it ends or the command is interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: a.command(func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), cmd, args[0], volume, loop)
		}),
	}
	cmd.Flags().Float32Var(&volume, "volume", 1, "channel volume, 0 to 1")
	cmd.Flags().BoolVar(&loop, "loop", false, "loop until interrupted")
	return cmd
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (a *app) play(ctx context.Context, cmd *cobra.Command, src string, volume float32, loop bool) (err error) {
	dev, err := a.b.Device(a.settings.Device).Init(a.settings.Freq, 0)
	if err != nil {
		return fmt.Errorf("initializing device %d: %w", a.settings.Device, err)
	}
	defer func() {
		err = errors.Join(err, dev.Free())
	}()

	var flags native.StreamFlags
	if loop {
		flags |= native.StreamSampleLoop
	}

	var s *audbind.Stream
	if isURL(src) {
		s, err = dev.StreamFromURL(src, 0, flags, nil)
	} else {
		s, err = dev.StreamFromFile(src, 0, 0, flags)
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() {
		if ferr := s.Free(); ferr != nil && !errors.Is(ferr, audbind.ErrInvalidHandle) {
			err = errors.Join(err, ferr)
		}
	}()

	// END fires at every pass of a looping stream, so only interruption
	// stops one
	var ended chan struct{}
	if !loop {
		ended = make(chan struct{})
		if _, err := s.SetSync(native.SyncEnd|native.SyncOnetime, 0, func(context.Context, uint32) {
			close(ended)
		}); err != nil {
			return err
		}
	}
	if err := s.SetAttribute(native.AttribVol, volume); err != nil {
		return err
	}

	info, err := s.Info()
	if err != nil {
		return err
	}
	a.log.Info("playing",
		zap.String("source", src),
		zap.Int("device", dev.Index()),
		zap.Uint32("freq", info.Freq),
		zap.Uint32("chans", info.Chans))

	if err := s.Play(false); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "playing %s on device %d\n", src, dev.Index())

	select {
	case <-ended:
	case <-ctx.Done():
		_ = s.Stop()
	}

	pos, _ := s.Position(native.PosByte)
	fmt.Fprintf(cmd.OutOrStdout(), "stopped at byte %d\n", pos)
	return nil
}
