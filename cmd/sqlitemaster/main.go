package main

import "github.com/zendesk/sqlitemaster/internal/cli"

func main() {
	cli.Execute()
}
