package main

import (
	"fmt"
	"os"

	"github.com/vladislavdragonenkov/orders/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "ordersctl:", err)
		os.Exit(1)
	}
}
