// The main package for the bondenvelope executable.
package main

import (
	"github.com/JakeFAU/bond-envelope/cmd"
)

func main() {
	cmd.Execute()
}
