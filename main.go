package main

import (
	"github.com/ValentinKolb/dSM/cmd"
)

func main() {
	cmd.Execute()
}
