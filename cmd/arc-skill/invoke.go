package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/cli"
	"github.com/gezibash/arc-skill/internal/interceptor"
	"github.com/gezibash/arc-skill/internal/simulator"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
	"github.com/gezibash/arc-skill/pkg/runtime"
)

func newInvokeCmd(v *viper.Viper) *cobra.Command {
	var (
		utterance string
		remote    string
		raw       bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "invoke [envelope.json]",
		Short: "Dispatch one request envelope",
		Long: `Dispatch one request envelope to the skill and print the response.

The envelope is read from the file argument, from stdin when the argument
is "-" or absent, or built from --utterance.

Examples:
  arc-skill invoke request.json
  cat request.json | arc-skill invoke
  arc-skill invoke -u "divide 10 by 4"
  arc-skill invoke -u "add 1 and 2" --remote localhost:50051
  arc-skill invoke request.json --raw`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			env, err := readEnvelope(cmd.InOrStdin(), args, utterance, cfg.Skill.ID)
			if err != nil {
				return err
			}

			return cli.RunCommand(cli.CommandConfig{
				Name:    "invoke",
				Viper:   v,
				Timeout: timeout,
				Output:  cli.NewOutput(cli.ParseFormat(v.GetString("output")), cmd.OutOrStdout()),
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					inv, closeFn, err := newInvoker(remote, cfg.Skill, rt.Log(), interceptor.Logging(rt.Log()))
					if err != nil {
						return err
					}
					defer func() { _ = closeFn() }()

					resp, err := inv.Invoke(ctx, env)
					if err != nil {
						return fmt.Errorf("invoke: %w", err)
					}
					if raw {
						return writeRaw(out.Writer(), resp)
					}
					return renderResponse(out, env, resp)
				},
			})
		},
	}

	cmd.Flags().StringVarP(&utterance, "utterance", "u", "", "build the envelope from free text")
	cmd.Flags().StringVar(&remote, "remote", "", "gRPC address of a running skill server")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the response envelope as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "invocation timeout")
	return cmd
}

func readEnvelope(stdin io.Reader, args []string, utterance, skillID string) (*envelope.RequestEnvelope, error) {
	if utterance != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--utterance and an envelope file are mutually exclusive")
		}
		return simulator.New(simulator.Options{ApplicationID: skillID}).FromUtterance(utterance), nil
	}

	r := stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	env, err := envelope.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}
	return env, nil
}

func writeRaw(w io.Writer, resp *response.Envelope) error {
	data, err := envelope.MarshalIndent(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func renderResponse(out *cli.Output, env *envelope.RequestEnvelope, resp *response.Envelope) error {
	kv := out.KV("response").
		Set("Request ID", env.RequestID()).
		Set("Request Type", env.RequestType())
	if name := env.IntentName(); name != "" {
		kv.Set("Intent", name)
	}
	kv.Set("Speech", resp.Speech())
	if rp := resp.RepromptSpeech(); rp != "" {
		kv.Set("Reprompt", rp)
	}
	if end, set := resp.EndsSession(); set {
		kv.Set("End Session", end)
	}
	return kv.Render()
}
