package main

import "github.com/davebream/olaunch/cmd"

func main() {
	cmd.Execute()
}
