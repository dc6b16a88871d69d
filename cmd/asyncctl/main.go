// Command asyncctl is a small demonstration CLI for the async scheduler: it runs a
// handful of scripted scenarios against a real Runtime and renders the resulting
// metrics, and it can fetch a URL through the httpclient collaborator to exercise the
// scheduler's write/read_all suspension points end to end.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/KrishRVH/minimal-php-async/cmd/asyncctl/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
