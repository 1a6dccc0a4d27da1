package main

import "mensahub/cmd/mensahub/command"

func main() {
	command.Execute()
}
