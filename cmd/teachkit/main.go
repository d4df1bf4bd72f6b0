package main

import "github.com/mcoot/teachkit/internal/cli"

func main() {
	cli.Execute()
}
