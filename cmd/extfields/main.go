package main

import (
	"fmt"
	"os"

	"github.com/Notifuse/extfields/internal/app"
)

// osExit is a variable to allow mocking os.Exit in tests
var osExit = os.Exit

func main() {
	root := newRootCmd(app.NewApp)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		osExit(1)
	}
}
