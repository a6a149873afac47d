package main

import "github.com/watchllm/watchllm-go/internal/cli"

func main() {
	cli.Execute()
}
