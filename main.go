// Package main is the entry point for the ultraclean CLI.
package main

import "ultraclean.dev/pkg/ultraclean/cmd"

func main() {
	cmd.Execute()
}
