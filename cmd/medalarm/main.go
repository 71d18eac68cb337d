package main

import "github.com/oshokin/med-alarm/cmd/medalarm/cmd"

func main() {
	cmd.Execute()
}
