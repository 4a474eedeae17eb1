package main

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/cli"
	"github.com/gezibash/arc-skill/internal/skill"
)

func newRoutesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the handler chain in match order",
		Long: `Show the request handlers in the order they are tried, including alias
routes from skill.routes, followed by the error handlers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			sk, err := buildSkill(cfg.Skill, nil)
			if err != nil {
				return err
			}
			out := cli.NewOutput(cli.ParseFormat(v.GetString("output")), cmd.OutOrStdout())
			return renderRoutes(out, sk)
		},
	}
}

func renderRoutes(out *cli.Output, sk *skill.Skill) error {
	tbl := out.Table("routes", "#", "Kind", "Handler", "Match").AlignRight("#")
	n := 0
	for _, h := range sk.Handlers() {
		n++
		tbl.AddRow(strconv.Itoa(n), "request", h.Name(), skill.Describe(h))
	}
	for _, h := range sk.ErrorHandlers() {
		n++
		tbl.AddRow(strconv.Itoa(n), "error", h.Name(), "*")
	}
	return tbl.Render()
}
