package main

import (
	"log"

	"github.com/AdhamEssa01/accademy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
