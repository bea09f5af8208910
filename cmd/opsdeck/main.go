package main

import "github.com/opsdeck/opsdeck/cmd/opsdeck/cmd"

func main() {
	cmd.Execute()
}
