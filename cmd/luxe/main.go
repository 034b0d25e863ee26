package main

import "github.com/matthieukhl/luxe/internal/cmd"

func main() {
	cmd.Execute()
}
