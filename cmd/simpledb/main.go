package main

import (
	"github.com/medatechnology/simpledb/cmd/simpledb/cmd"
)

func main() {
	cmd.Execute()
}
