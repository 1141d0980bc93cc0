package main

import (
	"os"

	"github.com/annotext/linemark/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
