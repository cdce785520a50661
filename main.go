package main

import "github.com/enveil/enveil/cmd/enveil"

func main() { enveil.Execute() }
