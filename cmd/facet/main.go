package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/zoobzio/facet/internal/cli"
)

var version = "dev"

func main() {
	cfg, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.ShowVersion {
		fmt.Println(version)
		return
	}

	runner := cli.NewRunner(os.Stdout)
	if err := runner.Run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}
