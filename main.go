package main

import "api-poller/cmd"

func main() {
	cmd.Execute()
}
