package main

import (
	"fmt"

	"github.com/pulsebeam-relay/signaling-relay/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
