// Package cli содержит команды ordersctl поверх REST API заказов.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	envServer     = "ORDERS_SERVER"
	defaultServer = "http://localhost:8080"
)

type globalOptions struct {
	server   string
	reactive bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "ordersctl",
		Short:         "Command-line client for the orders service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(envServer)
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "orders service base URL (env "+envServer+")")
	cmd.PersistentFlags().BoolVar(&opts.reactive, "reactive", false, "use the /reactive/orders API")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newCreateCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newByCustomerCmd(opts))
	cmd.AddCommand(newSpendingCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}
