// Package main is the entry point for the secgroupsctl administrative CLI.
package main

import "os"

func main() {
	os.Exit(execute())
}
