package main

import "paroles/cmd"

func main() {
	cmd.Execute()
}
