package main

import (
	"os"

	"github.com/apex/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
