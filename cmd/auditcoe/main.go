package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joacominatel/auditcoe/internal/app"
	"github.com/joacominatel/auditcoe/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.StyleError.Render("Error: "+describe(err)))
		os.Exit(1)
	}
}

// describe prefers the machine-readable code for service errors.
func describe(err error) string {
	var e *app.Error
	if errors.As(err, &e) {
		return fmt.Sprintf("[%s] %s", e.Code, e.Detail)
	}
	return err.Error()
}
