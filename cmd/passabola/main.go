// Command passabola drives the passa-a-bola session core from the terminal
// and serves the same-origin proxy used by the web pages.
package main

import "github.com/passa-a-bola/web/cmd/passabola/cmd"

func main() {
	cmd.Execute()
}
