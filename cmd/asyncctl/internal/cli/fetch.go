package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	async "github.com/KrishRVH/minimal-php-async"
	"github.com/KrishRVH/minimal-php-async/cmd/asyncctl/internal/output"
	"github.com/KrishRVH/minimal-php-async/httpclient"
)

func newFetchCmd() *cobra.Command {
	var method string
	var insecure bool

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "fetch a URL through the bundled HTTP client collaborator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			rt := async.New()

			task := async.Queue(rt, nil, func(c *async.Ctx) (*httpclient.Response, error) {
				return httpclient.Fetch(c, target, httpclient.Options{
					Method:    method,
					Verify:    !insecure,
					VerifySet: true,
				})
			})

			resp, err := task.Await(nil)

			noColor, _ := cmd.Flags().GetBool("no-color")
			colors := output.NewColorScheme(cmd.OutOrStdout(), noColor)

			if resp != nil {
				fmt.Fprintln(cmd.OutOrStdout(), colors.Metric(fmt.Sprintf("status: %d", resp.StatusCode)))
				fmt.Fprintln(cmd.OutOrStdout(), string(resp.Body))
			}
			if err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS verification for https targets")
	return cmd
}
