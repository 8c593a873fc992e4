package main

import "github.com/iksnae/jonas-chat/cmd"

func main() {
	cmd.Execute()
}
