package main

import "github.com/shillcock/pb-and-jelly/cmd"

func main() {
	cmd.Execute()
}
