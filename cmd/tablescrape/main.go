package main

import "github.com/pfrederiksen/tablescrape/internal/cli"

func main() {
	cli.Execute()
}
