package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tehzhed/portnord/pkg/k8s"
)

var servicesOutputFile string

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Print the discovered services and their ports as YAML",
	Long: `Lists the services of the selected namespace with their remote ports,
without starting the dashboard. Useful for scripting or for checking what
the dashboard would show.`,
	RunE: runServices,
}

func init() {
	servicesCmd.Flags().StringVarP(&servicesOutputFile, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(servicesCmd)
}

type serviceListing struct {
	Namespace string         `yaml:"namespace"`
	Services  []serviceEntry `yaml:"services"`
}

type serviceEntry struct {
	Name  string `yaml:"name"`
	Ports []int  `yaml:"ports"`
}

func runServices(cmd *cobra.Command, args []string) error {
	client, err := k8s.NewClient(clientOptions())
	if err != nil {
		return err
	}

	services, err := client.ListServices(cmd.Context())
	if err != nil {
		return err
	}

	listing := serviceListing{Namespace: client.Namespace()}
	for _, svc := range services {
		listing.Services = append(listing.Services, serviceEntry{Name: svc.Name, Ports: svc.Ports})
	}

	data, err := yaml.Marshal(listing)
	if err != nil {
		return fmt.Errorf("encoding services: %w", err)
	}

	if servicesOutputFile != "" {
		if err := os.WriteFile(servicesOutputFile, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", servicesOutputFile, err)
		}
		fmt.Printf("Wrote %d service(s) to %s\n", len(listing.Services), servicesOutputFile)
		return nil
	}

	fmt.Print(string(data))
	return nil
}
