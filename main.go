package main

import "accpartner-backend/cmd"

func main() {
	cmd.Run()
}
