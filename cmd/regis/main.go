package main

import (
	"os"

	"github.com/jvs-project/regis/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
