// Package main is the entry point for the fleet console.
package main

import "fleet-console/cmd/fleet/cmd"

func main() {
	cmd.Execute()
}
