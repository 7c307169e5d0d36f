package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/passa-a-bola/web/internal/port/outbound"
)

var fetchQuery []string

var fetchCmd = &cobra.Command{
	Use:   "fetch PATH",
	Short: "GET a backend path with the session token",
	Long: `Send an authorized GET to a logical backend path and print the response body.

The bearer token of the current session is attached when logged in. JSON
responses are indented.

Examples:
  passabola fetch /api/news
  passabola fetch /api/tournaments -q status=open -q page=2`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringArrayVarP(&fetchQuery, "query", "q", nil, "query parameter as key=value (repeatable)")
	rootCmd.AddCommand(fetchCmd)
}

// parseQuery turns key=value pairs into url.Values.
func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q (want key=value)", pair)
		}
		q.Add(key, value)
	}
	return q, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	query, err := parseQuery(fetchQuery)
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
		resp, err := a.api.Do(cmd.Context(), outbound.Request{
			Method: http.MethodGet,
			Path:   args[0],
			Query:  query,
		})
		if err != nil {
			return err
		}

		body := resp.Body
		var indented bytes.Buffer
		if json.Indent(&indented, body, "", "  ") == nil {
			body = indented.Bytes()
		}
		out := cmd.OutOrStdout()
		if _, err := out.Write(body); err != nil {
			return err
		}
		if len(body) > 0 && body[len(body)-1] != '\n' {
			fmt.Fprintln(out)
		}
		return nil
	})
}
