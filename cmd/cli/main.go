package main

import (
	"crm-portal/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
