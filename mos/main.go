// Package main runs batch decks on the emulated machine.
package main

import "github.com/sarchlab/akita-mos/mos/cmd"

func main() {
	cmd.Execute()
}
