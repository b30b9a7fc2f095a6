package main

import "canvaslink/cmd/canvaslink-cli/cmd"

func main() {
	cmd.Execute()
}
