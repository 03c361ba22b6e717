package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"promptd/pkg/types"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		providerName string
		model        string
		maxTokens    int
		temperature  float32
		seed         uint32
	)
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Run a one-shot generation and stream the result to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, eng := buildGateway(opts)
			defer eng.Close()

			req := types.GenerateRequest{
				Provider:  providerName,
				Prompt:    strings.Join(args, " "),
				Model:     model,
				MaxTokens: maxTokens,
				Seed:      seed,
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}

			// Ctrl+C aborts generation rather than killing the process.
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sw := &stdoutTokenWriter{}
			if err := gw.Generate(ctx, req, sw, nil); err != nil {
				return err
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "Provider to generate with (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model override for cloud providers")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Maximum number of new tokens")
	cmd.Flags().Float32Var(&temperature, "temperature", 0, "Sampling temperature (0 = greedy)")
	cmd.Flags().Uint32Var(&seed, "seed", 0, "Sampling seed (0 = random per call)")
	return cmd
}

// stdoutTokenWriter unwraps NDJSON token lines and prints the raw fragments.
type stdoutTokenWriter struct {
	buf []byte
}

func (sw *stdoutTokenWriter) Write(p []byte) (int, error) {
	sw.buf = append(sw.buf, p...)
	for {
		idx := bytes.IndexByte(sw.buf, '\n')
		if idx < 0 {
			break
		}
		line := sw.buf[:idx]
		sw.buf = sw.buf[idx+1:]
		var tok types.TokenLine
		if err := json.Unmarshal(line, &tok); err == nil && tok.Token != "" {
			fmt.Print(tok.Token)
		}
	}
	return len(p), nil
}
