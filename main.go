package main

import "trackdash/cmd"

func main() {
	cmd.Execute()
}
