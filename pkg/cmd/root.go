package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tehzhed/portnord/pkg/k8s"
	"github.com/tehzhed/portnord/pkg/logging"
	"github.com/tehzhed/portnord/pkg/tunnel"
	"github.com/tehzhed/portnord/pkg/ui"
)

var rootCmd = &cobra.Command{
	Use:   "portnord",
	Short: "Browse Kubernetes services and toggle local port tunnels",
	Long: `portnord discovers the services in a Kubernetes namespace and lets you
expose their ports locally through ephemeral tunnels, toggling them from a
terminal dashboard. Each tunnel binds a local listener on the same port
number as the remote port and proxies HTTP traffic to the first pod whose
name matches the service.`,
	SilenceUsage: true,
	RunE:         runDashboard,
}

// Execute runs the root command. This is the only place the process exits
// with a failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("namespace", "n", "", "namespace to browse (defaults to the kubeconfig's current namespace)")
	flags.String("context", "", "kubeconfig context to use")
	flags.String("kubeconfig", "", "path to the kubeconfig file")
	flags.String("log-file", "portnord.log", "log file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	viper.SetEnvPrefix("portnord")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{"namespace", "context", "kubeconfig", "log-file", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func clientOptions() k8s.Options {
	return k8s.Options{
		Kubeconfig: viper.GetString("kubeconfig"),
		Context:    viper.GetString("context"),
		Namespace:  viper.GetString("namespace"),
	}
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if err := logging.Init(viper.GetString("log-file"), viper.GetString("log-level")); err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logging.Sync()

	client, err := k8s.NewClient(clientOptions())
	if err != nil {
		return err
	}

	services, err := client.ListServices(cmd.Context())
	if err != nil {
		return err
	}
	logging.LogInfo("discovered %d services in namespace %s", len(services), client.Namespace())

	registry := tunnel.NewRegistry()
	supervisor := tunnel.NewSupervisor(tunnel.DialerFunc(
		func(ctx context.Context, pod string, port int) (tunnel.RemoteStream, error) {
			return client.DialPod(ctx, pod, port)
		},
	))
	coordinator := tunnel.NewCoordinator(registry, supervisor, client)

	model := ui.NewModel(client.Namespace(), services, registry, coordinator)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	model.Cleanup()
	return nil
}
