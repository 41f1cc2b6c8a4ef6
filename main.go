package main

import "github.com/genclm/genctl/cmd"

func main() {
	cmd.Execute()
}
