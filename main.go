package main

import "github.com/smartgallery/backend/cmd"

func main() {
	cmd.Execute()
}
