package main

import "github.com/iksnae/modelchat/cmd"

func main() {
	cmd.Execute()
}
