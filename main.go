package main

import "github.com/modelsmith/tailor-cli/cmd"

func main() {
	cmd.Execute()
}
