// Package main is the entry point of the server-identity application.
// It starts the server by calling the initialization function of the internal package.
package main

import (
	"server-identity/internal"
)

func main() {
	internal.Init()
}
