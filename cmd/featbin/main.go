package main

import "github.com/YuminosukeSato/featbin/cmd/featbin/cmd"

func main() {
	cmd.Execute()
}
