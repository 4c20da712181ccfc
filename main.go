package main

import "astro-service/cmd"

func main() {
	cmd.Execute()
}
