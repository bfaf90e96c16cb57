package main

import (
	"github.com/ppagent/cmd/agent"
)

func main() {
	agent.Execute()
}
