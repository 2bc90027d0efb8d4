package main

import "github.com/notargets/gopde/cmd"

func main() {
	cmd.Execute()
}
