package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/syncbridge/internal/client/cli"
	"github.com/dmitrijs2005/syncbridge/internal/client/client"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", client.UserMessage(err))
		os.Exit(1)
	}
}
