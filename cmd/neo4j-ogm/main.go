package main

import (
	"fmt"
	"os"

	"github.com/nioertel/neo4j-ogm/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
