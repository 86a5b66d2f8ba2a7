package main

import "github.com/heddlehq/heddle/cmd"

func main() {
	cmd.Execute()
}
