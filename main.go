// Package main is the entry point for the hltvharvest CLI tool, which
// scrapes historical Counter-Strike match data from HLTV.org into a
// local SQLite database.
package main

import "github.com/pable/go-hltv-harvest/cmd"

func main() {
	cmd.Execute()
}
