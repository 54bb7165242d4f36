package main

import "github.com/tehzhed/portnord/pkg/cmd"

func main() {
	cmd.Execute()
}
