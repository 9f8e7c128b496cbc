package main

import (
	"os"

	"github.com/JonMunkholm/sweeper/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
