package main

import (
	"os"

	"github.com/JakeFAU/corpus-crawler/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
