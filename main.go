package main

import "github.com/dszqbsm/fraudcrawler/cmd"

func main() {
	cmd.Execute()
}
