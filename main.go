package main

import "github.com/princesingh-ai-dev/faceauth/cmd"

func main() {
	cmd.Execute()
}
