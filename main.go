package main

import (
	"github.com/cachesim/cachesim/cmd"
)

func main() {
	cmd.Execute()
}
