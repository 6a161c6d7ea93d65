// Command lpcsv imports and exports competency frameworks as CSV without the
// HTTP server.
package main

func main() {
	Execute()
}
