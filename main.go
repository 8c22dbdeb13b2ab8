package main

import "github.com/vietdv277/logmux/cmd"

func main() {
	cmd.Execute()
}
