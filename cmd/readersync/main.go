package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"readersync/internal/cli"
)

func main() {
	app := &cli.App{}
	err := cli.NewRootCmd(app).ExecuteContext(context.Background())
	app.Close()
	if err != nil {
		// Failed processor runs have already printed their JSON summary.
		if !errors.Is(err, cli.ErrRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
