package main

import (
	"os"

	"github.com/dsoprea/go-logging"

	"github.com/donocean/go-flashee/cmd/flashee/cmd"
)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	if err := cmd.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
