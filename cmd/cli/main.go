package main

import "github.com/freemirror/yamdb-final/cmd/cli/command"

func main() {
	command.Execute()
}
