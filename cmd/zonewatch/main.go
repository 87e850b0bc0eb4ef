package main

import "github.com/vietddude/zonewatch/internal/cli"

func main() {
	cli.Execute()
}
