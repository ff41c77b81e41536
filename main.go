package main

import "github.com/kenilGamer/restodrive-dbsetup/cmd"

func main() {
	cmd.Execute()
}
