package main

import "github.com/oshokin/datachannels-prebuild/cmd/datachannels-prebuild/cmd"

func main() {
	cmd.Execute()
}
