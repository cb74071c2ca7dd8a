package main

import "github.com/jb49088/riven-sniper/internal/cli"

func main() {
	cli.Execute()
}
