// Package main provides pacectl, the command-line front end to the pacing core.
package main

import "github.com/maauso/zenpal-audio/internal/cli"

func main() {
	cli.Main()
}
