package main

import "github.com/lepinkainen/coverfetch/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
