package main

import "github.com/SeekerKids/forecast-prophet-kp/cmd/salescast/cmd"

func main() {
	cmd.Execute()
}
