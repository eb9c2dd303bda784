package main

import "github.com/ceceprawiro/sso/cmd/sso/cmd"

func main() {
	cmd.Execute()
}
