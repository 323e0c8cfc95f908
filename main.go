package main

import (
	"fmt"
	"os"

	"github.com/username/directreg/src/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "directreg:", err)
		os.Exit(1)
	}
}
