package main

import "milterpolicy/internal/cli"

func main() {
	cli.Execute()
}
