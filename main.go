package main

import "github.com/kozaktomas/person-tracker/cmd"

func main() {
	cmd.Execute()
}
