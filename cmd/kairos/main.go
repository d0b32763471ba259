package main

import "github.com/japintos/KairosMarket-sub001/internal/cli"

func main() {
	cli.Execute()
}
