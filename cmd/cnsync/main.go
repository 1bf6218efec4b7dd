package main

import "cnsync/internal/cli"

func main() {
	cli.Execute()
}
