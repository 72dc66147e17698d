package main

import "zasm/cmd"

func main() {
	cmd.Execute()
}
