package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/cli"
	"github.com/gezibash/arc-skill/internal/console"
	"github.com/gezibash/arc-skill/internal/interceptor"
	"github.com/gezibash/arc-skill/internal/simulator"
	"github.com/gezibash/arc-skill/pkg/runtime"
)

func newConsoleCmd(v *viper.Viper) *cobra.Command {
	var (
		remote string
		locale string
	)

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Talk to the skill interactively",
		Long: `Talk to the skill interactively. Each line is turned into a request
envelope ("add 2 and 3", "help", "stop"); /launch and /end send a launch
and a session-ended request, /quit leaves.

On a terminal this opens a full-screen console. When stdin is a pipe it
reads one utterance per line and prints one reply per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			return cli.RunCommand(cli.CommandConfig{
				Name:  "console",
				Viper: v,
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					inv, closeFn, err := newInvoker(remote, cfg.Skill, rt.Log(), interceptor.Logging(rt.Log()))
					if err != nil {
						return err
					}
					defer func() { _ = closeFn() }()

					sim := simulator.New(simulator.Options{ApplicationID: cfg.Skill.ID, Locale: locale})
					return console.Run(ctx, console.NewSession(inv, sim), os.Stdin, out.Writer())
				},
			})
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "gRPC address of a running skill server")
	cmd.Flags().StringVar(&locale, "locale", "en-US", "request locale")
	return cmd
}
