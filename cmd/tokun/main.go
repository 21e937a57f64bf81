// Tokun - count and trim the tokens in LLM prompts
package main

import (
	"os"

	"github.com/HartBrook/tokun/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
