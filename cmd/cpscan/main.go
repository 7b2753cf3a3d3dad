package main

import "github.com/mvp-joe/classpath-scanner/internal/cli"

func main() {
	cli.Execute()
}
