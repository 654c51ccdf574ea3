package main

import "github.com/surge-downloader/tubepanel/cmd"

func main() {
	cmd.Execute()
}
