// Command gmvsync imports GMV exports into the contact database.
package main

func main() {
	Execute()
}
