// Command gifconverter serves the GIF gallery and converts Drive GIFs to MP4.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version is set during build time using ldflags
var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
