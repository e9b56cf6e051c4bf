package main

import "github.com/sigtrail/sigtrail/cmd"

func main() {
	cmd.Execute()
}
