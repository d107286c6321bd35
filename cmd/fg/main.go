package main

import "github.com/ogulcanaydogan/fee-guardian/internal/cli"

func main() {
	cli.Execute()
}
