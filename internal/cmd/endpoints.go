package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEndpointsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints in the order they are tried",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := opts.endpoints()
			if err != nil {
				return err
			}

			for i, ep := range eps {
				fmt.Fprintf(opts.stdout, "%d. %-12s %s\n", i+1, ep.Name, ep.URL)
			}
			return nil
		},
	}
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.stdout, "shrimpctl %s\n", Version)
		},
	}
}
