package main

import "github.com/kris-hansen/scrollystory/cmd"

func main() {
	cmd.Execute()
}
