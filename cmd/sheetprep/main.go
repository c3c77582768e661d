package main

import "github.com/JonMunkholm/sheetprep/internal/cli"

func main() {
	cli.Execute()
}
