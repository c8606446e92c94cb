// Command modelctl manages the on-disk assets of the landmark service.
package main

func main() {
	Execute()
}
