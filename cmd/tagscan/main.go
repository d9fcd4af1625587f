package main

import "github.com/MeKo-Tech/fiducial/cmd/tagscan/cmd"

func main() {
	cmd.Execute()
}
