package main

import (
	"sync"

	"github.com/spf13/cobra"

	"hireflow/internal/config"
)

// commandContext loads configuration once, on first use by a subcommand.
type commandContext struct {
	once sync.Once
	cfg  *config.Config
	err  error
	load func() (*config.Config, error)
}

func (c *commandContext) config() (*config.Config, error) {
	c.once.Do(func() {
		c.cfg, c.err = c.load()
	})
	return c.cfg, c.err
}

func newRootCommand(load func() (*config.Config, error)) *cobra.Command {
	ctx := &commandContext{load: load}

	rootCmd := &cobra.Command{
		Use:           "hireflowctl",
		Short:         "Operator tools for the hiring workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.AddCommand(newTokenCommand(ctx))
	return rootCmd
}
