package main

import "pysetupinfo/internal/cli"

func main() {
	cli.Execute()
}
