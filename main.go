/*
Copyright 2023 Markus Papenbrock
*/
package main

import "github.com/mpapenbr/karting-sync/cmd"

func main() {
	cmd.Execute()
}
