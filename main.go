package main

import "github.com/verdantlabs/ecoburn/cmd"

func main() {
	cmd.Execute()
}
