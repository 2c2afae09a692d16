package main

import (
	"sparqlmcp/cmd/sparqlmcp/root"
)

func main() {
	root.Execute()
}
