package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kpatel2913/Faceable/internal/replay"
	"github.com/kpatel2913/Faceable/internal/stream"
)

func replayCmd() *cobra.Command {
	var (
		server   string
		realtime bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "replay <recording.yaml>",
		Short: "Run a recorded session through the engine",
		Long: `Replay a YAML recording of landmarker frames and print the events each
frame produced followed by the final canvas state.

Runs locally with the configured thresholds by default. With --server the
frames are streamed to a running "faceable serve" instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := replay.Load(args[0])
			if err != nil {
				return err
			}

			var result *replay.Result
			if server != "" {
				result, err = replayRemote(cmd.Context(), server, rec, realtime)
				if err != nil {
					return err
				}
			} else {
				result = replay.Run(rec, cfg.Engine(), nil, cfg.Canvas.Palette)
			}

			log.Info("replay", "Replay finished", map[string]interface{}{
				"frames":  len(rec.Frames),
				"events":  len(result.Discrete()),
				"strokes": len(result.Strokes),
				"dropped": result.Dropped,
			})
			return writeResult(cmd.OutOrStdout(), result, format)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "stream to a running server at this URL instead of replaying locally")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames by their timestamps (with --server)")
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml or json")

	return cmd
}

func replayRemote(ctx context.Context, server string, rec *replay.Recording, realtime bool) (*replay.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	u, err := stream.StreamURL(server, cfg.Server.WSPath)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := stream.Dial(dialCtx, u, log.Zerolog())
	if err != nil {
		return nil, err
	}
	defer c.Close()

	return replay.Remote(ctx, c, rec, realtime)
}

func writeResult(w io.Writer, result *replay.Result, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	case "json":
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
