package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionShort bool

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the kubeask build version",
		Long: `Shows the kubeask build version together with the Go toolchain and
platform it was built for. Use --short to print the version alone, for
example in scripts that compare a server and a client build.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if versionShort {
				fmt.Fprintln(cmd.OutOrStdout(), GetVersion())
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kubeask %s (%s, %s/%s)\n", GetVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version")
	return cmd
}
