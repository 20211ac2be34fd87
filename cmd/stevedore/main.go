package main

import "github.com/quayops/stevedore/internal/cmd"

func main() {
	cmd.Execute()
}
