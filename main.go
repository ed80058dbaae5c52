package main

import "github.com/XiaonuoGantan/rsedis/cmd"

func main() {
	cmd.Execute()
}
