package main

import "rsiwatch/internal/cli"

func main() {
	cli.Execute()
}
