package main

import "Ystore/internal/cli"

func main() {
	cli.Execute()
}
