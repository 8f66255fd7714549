package main

import "github.com/LENAX/lazyflow/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
