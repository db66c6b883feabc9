package main

import "github.com/example/resort-booking/cmd"

func main() {
	cmd.Execute()
}
