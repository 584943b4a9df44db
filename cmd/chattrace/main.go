package main

import "github.com/chattrace/chattrace/internal/cli"

func main() {
	cli.Execute()
}
