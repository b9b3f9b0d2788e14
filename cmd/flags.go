package cmd

import (
	"github.com/spf13/cobra"

	"kubeask/internal/config"
)

// clusterFlags are shared by every command that talks to the cluster
// directly. Only flags set on the command line override the file.
type clusterFlags struct {
	kubeconfig string
	context    string
	readOnly   bool
	protected  []string
}

func (f *clusterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kubeconfig, "kubeconfig", "", "Path to a kubeconfig file (default: in-cluster, then $KUBECONFIG, then ~/.kube/config)")
	cmd.Flags().StringVar(&f.context, "context", "", "Kubeconfig context to use")
	cmd.Flags().BoolVar(&f.readOnly, "read-only", false, "Refuse every mutating tool")
	cmd.Flags().StringSliceVar(&f.protected, "protected-namespace", nil, "Namespace in which mutating tools are refused (repeatable)")
}

func (f *clusterFlags) apply(cmd *cobra.Command, cfg *config.KubeaskConfig) {
	flags := cmd.Flags()
	if flags.Changed("kubeconfig") {
		cfg.Cluster.Kubeconfig = f.kubeconfig
	}
	if flags.Changed("context") {
		cfg.Cluster.Context = f.context
	}
	if flags.Changed("read-only") {
		cfg.Cluster.ReadOnly = f.readOnly
	}
	if flags.Changed("protected-namespace") {
		cfg.Cluster.ProtectedNamespaces = f.protected
	}
}
