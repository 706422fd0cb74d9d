package main

import "github.com/rustyeddy/dcasim/internal/cli"

func main() {
	cli.Execute()
}
